package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atlaslabs/atlas-auth/internal/http/middleware"
	"github.com/atlaslabs/atlas-auth/internal/service"
)

// AuthHandler exposes the register, login, and me endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	resp, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the user the auth middleware resolved from the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Not authenticated."})
		return
	}
	c.JSON(http.StatusOK, user)
}

func respondAuthError(c *gin.Context, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
		return
	}
	zap.L().Error("auth flow failure", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
}
