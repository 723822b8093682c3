package web

import (
	"net/http"

	"github.com/ali123/ali123/internal/logger"
	"github.com/ali123/ali123/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "api_user"

// authMiddleware checks HTTP basic credentials against the user store.
// With useAuth off every request passes.
func authMiddleware(useAuth bool, users store.UserStore) gin.HandlerFunc {
	if !useAuth {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || username == "" {
			unauthorized(c)
			return
		}
		user, err := users.Find(c.Request.Context(), username, password)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("user lookup failed", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "internal_error", "authentication unavailable")
			return
		}
		if user == nil {
			unauthorized(c)
			return
		}
		c.Set(userKey, user.Username)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="ali123"`)
	abortWithError(c, http.StatusUnauthorized, "unauthorized", "valid credentials are required")
}
