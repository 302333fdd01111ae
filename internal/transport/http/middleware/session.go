package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gemini-playground/internal/app"
	"gemini-playground/internal/pkg/jwtutil"
	"gemini-playground/internal/session"
	"gemini-playground/internal/transport/http/response"
)

const ContextSessionKey = "session"

// SessionAuth resolves the bearer token to a live session and stores it in the context.
func SessionAuth(secret string, chat *app.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		sess, ok := chat.Session(claims.SessionID)
		if !ok {
			response.Error(c, 404, response.CodeSessionNotFound, "session expired or not found")
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session stored by SessionAuth.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	raw, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := raw.(*session.Session)
	return sess, ok
}
