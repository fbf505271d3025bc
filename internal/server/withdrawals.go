package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
)

type requestWithdrawalRequest struct {
	Amount json.RawMessage `json:"amount"`
	Note   string          `json:"note"`
}

type updateWithdrawalRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) RequestWithdrawal(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body requestWithdrawalRequest
	if err := bindJSON(c, &body); err != nil {
		AbortWithError(c, withdrawaldomain.ErrInvalidAmount)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		AbortWithError(c, withdrawaldomain.ErrInvalidAmount)
		return
	}

	if _, err := s.withdrawalSvc.Request(c.Request.Context(), withdrawaldomain.RequestInput{
		UserID: userID,
		Amount: amount,
		Note:   body.Note,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) ListWithdrawals(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	rows, err := s.withdrawalSvc.ListForAdmin(c.Request.Context(), status, s.policy.Get().Lists.AdminWithdrawals)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rows == nil {
		rows = []withdrawaldomain.Withdrawal{}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) UpdateWithdrawal(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body updateWithdrawalRequest
	if err := bindJSON(c, &body); err != nil {
		AbortWithError(c, err)
		return
	}
	if strings.TrimSpace(body.ID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.withdrawalSvc.UpdateStatus(c.Request.Context(), withdrawaldomain.UpdateStatusInput{
		ActorUserID: actorID,
		ID:          strings.TrimSpace(body.ID),
		Status:      strings.TrimSpace(body.Status),
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
