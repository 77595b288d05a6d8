package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/keycloak-gateway/keycloak"
	"github.com/upb/keycloak-gateway/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns its claims
	ValidateToken(ctx context.Context, token string) (*keycloak.Claims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	// clientID is the one client whose resource_access roles matter to this
	// application; realm roles are always included.
	clientID string
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, clientID string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		clientID:  clientID,
		logger:    logger,
	}
}

// sessionCookieName is set by the auth handler after the OAuth2 callback.
// The Authorization header takes precedence when both are present.
const sessionCookieName = "session"

// RequireAuth is a middleware that requires a valid bearer token. On success
// the verified claims and the normalized role set are placed in the request
// context; an empty role set is a valid outcome and passes through.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		roles := claims.Roles(m.clientID)

		ctx = WithClaims(ctx, claims)
		ctx = WithRoles(ctx, roles)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.String("username", claims.PreferredUsername),
			zap.Int("role_count", roles.Len()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires a specific role in the normalized
// role set. This should be called after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return m.RequireAnyRole(role)
}

// RequireAnyRole is a middleware that requires at least one of the given
// roles. This should be called after RequireAuth.
func (m *AuthMiddleware) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			claims := GetClaimsFromContext(ctx)
			if claims == nil {
				m.logger.Error("claims not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			granted := GetRolesFromContext(ctx)
			if !granted.HasAny(roles...) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("sub", claims.Subject),
					zap.Strings("required_roles", roles),
					zap.Strings("granted_roles", granted.Names()))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			m.logger.Debug("role check passed",
				zap.String("request_id", requestID),
				zap.Strings("required_roles", roles))

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts a token from the Authorization header ("Bearer TOKEN")
// or the session cookie set by the OAuth2 callback. The header takes
// precedence when both are present.
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
