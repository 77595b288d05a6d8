package middleware

import (
	"context"

	"github.com/upb/keycloak-gateway/keycloak"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// RolesKey is the context key for the normalized role set
	RolesKey contextKey = "roles"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves verified token claims from context
func GetClaimsFromContext(ctx context.Context) *keycloak.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*keycloak.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds verified token claims to the context
func WithClaims(ctx context.Context, claims *keycloak.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetRolesFromContext retrieves the normalized role set from context.
// Returns an empty set when no roles were attached; callers never need a
// nil check before Has/HasAny.
func GetRolesFromContext(ctx context.Context) keycloak.RoleSet {
	if val := ctx.Value(RolesKey); val != nil {
		if roles, ok := val.(keycloak.RoleSet); ok {
			return roles
		}
	}
	return keycloak.RoleSet{}
}

// WithRoles adds a normalized role set to the context
func WithRoles(ctx context.Context, roles keycloak.RoleSet) context.Context {
	return context.WithValue(ctx, RolesKey, roles)
}
