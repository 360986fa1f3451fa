package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/security"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// AuthHandlers handles authentication API requests
type AuthHandlers struct {
	auth   *security.AuthService
	logger *zap.Logger
}

// NewAuthHandlers creates a new authentication handlers instance
func NewAuthHandlers(auth *security.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, logger: logger.Named("auth-api")}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req security.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, security.ErrInvalidCredentials) {
			fail(c, apperrors.NewInvalidCredentialsError())
			return
		}
		fail(c, apperrors.Wrap(err, "Login failed"))
		return
	}
	c.JSON(http.StatusOK, token)
}

// Logout handles POST /api/v1/auth/logout. The token presented with the
// request stops validating.
func (h *AuthHandlers) Logout(c *gin.Context) {
	claims, ok := security.ClaimsFrom(c)
	if !ok {
		fail(c, apperrors.NewUnauthorizedError(""))
		return
	}

	if err := h.auth.Revoke(c.Request.Context(), claims); err != nil {
		fail(c, apperrors.NewInternalError("Logout failed").WithCause(err))
		return
	}
	c.Status(http.StatusNoContent)
}
