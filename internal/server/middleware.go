package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kograph/internal/audit/masking"
	"github.com/smallbiznis/kograph/internal/auditcontext"
	obscontext "github.com/smallbiznis/kograph/internal/observability/context"
	"github.com/smallbiznis/kograph/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey = "x-kograph-key"

	contextUserIDKey   = "user_id"
	contextAPIKeyIDKey = "api_key_id"
)

// AuthRequired resolves the bearer token to a user id.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		userID, err := s.identitySvc.ResolveUserID(ctx, token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeUser, userID)
		ctx = obscontext.WithActor(ctx, auditcontext.ActorTypeUser, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// APIKeyRequired authenticates merchant integrations by the x-kograph-key
// header. The key's owner becomes the request user.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderAPIKey))

		ctx := c.Request.Context()
		key, err := s.apiKeySvc.Validate(ctx, token)
		if err != nil {
			if token != "" {
				logger.FromContext(ctx).Debug("api key rejected",
					zap.String("api_key", masking.MaskSecret(token)),
					zap.Error(err),
				)
			}
			AbortWithError(c, err)
			return
		}

		ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeAPIKey, key.ID)
		ctx = obscontext.WithActor(ctx, auditcontext.ActorTypeAPIKey, key.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, key.UserID)
		c.Set(contextAPIKeyIDKey, key.ID)
		c.Next()
	}
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), userID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(header))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func userIDFromContext(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetString(contextUserIDKey))
	return userID, userID != ""
}

func apiKeyIDFromContext(c *gin.Context) string {
	return c.GetString(contextAPIKeyIDKey)
}
