package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	moderationdomain "github.com/smallbiznis/kograph/internal/moderation/domain"
)

type userActionRequest struct {
	UserID  string `json:"userId"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// AdminMe reports the caller's role so the console can decide what to show.
// Any signed-in user may call it.
func (s *Server) AdminMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.identitySvc.Profile(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": profile.Role})
}

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.moderationSvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if users == nil {
		users = []moderationdomain.UserSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) UserAction(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req userActionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.moderationSvc.Act(c.Request.Context(), moderationdomain.ActInput{
		ActorUserID: actorID,
		UserID:      req.UserID,
		Action:      req.Action,
		Message:     req.Message,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	pageSize := s.policy.Get().Lists.AdminAudit
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		pageSize = min(parsed, pageSize)
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Action:    strings.TrimSpace(c.Query("action")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.Rows == nil {
		resp.Rows = []auditdomain.AuditLog{}
	}
	c.JSON(http.StatusOK, resp)
}
