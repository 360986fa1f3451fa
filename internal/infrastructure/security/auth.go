// Package security provides admin authentication for the write API
package security

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

const (
	// RoleAdmin is the only role the API knows.
	RoleAdmin = "admin"

	// Context keys set by AuthMiddleware.
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"

	revokedKeyPrefix = "revoked_token:"
	defaultIssuer    = "pantry"
	defaultAudience  = "pantry-api"
	defaultExpiry    = 12 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// AuthService authenticates the single configured admin and issues JWTs
type AuthService struct {
	username     string
	passwordHash []byte
	secret       []byte
	issuer       string
	expiry       time.Duration
	revoked      outbound.CacheRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthService creates a new authentication service. Revoked token ids
// are kept in cache until the token would have expired anyway.
func NewAuthService(cfg config.AuthConfig, revoked outbound.CacheRepository, logger *zap.Logger) *AuthService {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	expiry := cfg.JWTExpiration
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
		secret:       []byte(cfg.JWTSecret),
		issuer:       issuer,
		expiry:       expiry,
		revoked:      revoked,
		logger:       logger.Named("auth"),
		now:          time.Now,
	}
}

// Claims represents JWT claims structure
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Login checks the admin credentials and issues an access token.
func (a *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs as much as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil || a.username == "" {
		a.logger.Info("Login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.issue(username)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Admin logged in", zap.String("username", username))
	return &TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func (a *AuthService) issue(subject string) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.expiry)
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			Audience:  []string{defaultAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a JWT token and rejects revoked ids.
func (a *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(defaultAudience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}

	revoked, err := a.revoked.Exists(ctx, revokedKeyPrefix+claims.ID)
	if err != nil {
		// A cache outage must not lock the admin out.
		a.logger.Warn("Failed to check token revocation", zap.Error(err))
	} else if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks the token id until the token expires.
func (a *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(a.now()); remaining > ttl {
			ttl = remaining
		}
	}
	if err := a.revoked.Set(ctx, revokedKeyPrefix+claims.ID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	a.logger.Info("Token revoked", zap.String("jti", claims.ID))
	return nil
}

// HashPassword securely hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// AuthMiddleware requires a valid admin bearer token
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := a.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			a.logger.Info("Token validation failed",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
				zap.String("user_agent", c.Request.UserAgent()),
			)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserKey, claims.Subject)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims AuthMiddleware stored on c.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := apperrors.NewUnauthorizedError(message)
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: apperrors.ErrorDetails{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: c.GetString("request_id"),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}
