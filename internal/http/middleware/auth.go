package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atlaslabs/atlas-auth/internal/service"
)

const currentUserKey = "currentUser"

// Auth resolves the Authorization header to a user and attaches it to the
// request context.
type Auth struct {
	AuthService *service.AuthService
}

// Authenticate ensures the request carries a valid bearer token for a live
// account. Every authentication failure responds 401 with the same body.
func (m *Auth) Authenticate(c *gin.Context) {
	user, err := m.AuthService.Identify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		var authErr *service.AuthError
		if errors.As(err, &authErr) {
			c.AbortWithStatusJSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
			return
		}
		zap.L().Error("identity resolution failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

// GetCurrentUser exposes the authenticated user to handlers.
func GetCurrentUser(c *gin.Context) (service.UserViewModel, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return service.UserViewModel{}, false
	}
	user, ok := value.(service.UserViewModel)
	return user, ok
}
