package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kamrulhasan12345/brainstormers-server/pkg/errors"
	"github.com/kamrulhasan12345/brainstormers-server/pkg/response"
)

const (
	// CtxUserIDKey names the gin context key the resolved identity is stored
	// under.
	CtxUserIDKey = "userID"

	// UserIDHeader is set by the upstream gateway after it authenticates the
	// request. This service trusts it and never sees credentials itself.
	UserIDHeader = "X-User-ID"
)

// Identity resolves the acting user from the gateway-injected header and
// propagates it into the request context. Requests without an identity are
// rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}
