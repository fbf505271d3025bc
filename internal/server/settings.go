package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
)

type setDefaultAmountRequest struct {
	DefaultAmount json.RawMessage `json:"defaultAmount"`
}

func (s *Server) SetDefaultAmount(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req setDefaultAmountRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, settingsdomain.ErrInvalidAmount)
		return
	}
	amount, err := parseAmount(req.DefaultAmount)
	if err != nil {
		AbortWithError(c, settingsdomain.ErrInvalidAmount)
		return
	}

	if err := s.settingsSvc.SetDefaultAmount(c.Request.Context(), userID, amount); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
