package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
)

type createCheckoutRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	s.createCheckout(c, checkoutdomain.CreateRequest{
		UserID: userID,
		Kind:   checkoutdomain.KindWeb,
	})
}

func (s *Server) CreateAPICheckout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	s.createCheckout(c, checkoutdomain.CreateRequest{
		UserID:   userID,
		Kind:     checkoutdomain.KindAPI,
		APIKeyID: apiKeyIDFromContext(c),
	})
}

func (s *Server) createCheckout(c *gin.Context, req checkoutdomain.CreateRequest) {
	var body createCheckoutRequest
	if err := bindJSON(c, &body); err != nil {
		AbortWithError(c, checkoutdomain.ErrInvalidAmount)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		AbortWithError(c, checkoutdomain.ErrInvalidAmount)
		return
	}
	req.Amount = amount
	req.Description = body.Description

	resp, err := s.checkoutSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
