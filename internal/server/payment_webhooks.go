package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kograph/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) HandleSaweriaCallback(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.HandleWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result != nil {
		logger.FromContext(c.Request.Context()).Debug("saweria callback handled",
			zap.String("checkout_id", result.CheckoutID),
			zap.String("outcome", result.Outcome),
		)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
