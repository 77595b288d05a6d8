package handlers

import (
	"net/http"
	"time"

	"github.com/upb/keycloak-gateway/app"
	"github.com/upb/keycloak-gateway/middleware"
	"github.com/upb/keycloak-gateway/utils"
)

// StatusResponse is the response body for GET /api/v1/status
type StatusResponse struct {
	Service     string `json:"service"`
	Environment string `json:"environment"`
	Realm       string `json:"realm"`
	Timestamp   string `json:"timestamp"`
}

// StatusHandler reports basic service information. Public.
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, StatusResponse{
			Service:     "keycloak-gateway",
			Environment: deps.Config.Environment,
			Realm:       deps.Config.Keycloak.Realm,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// CurrentUserResponse is the response body for GET /api/v1/me
type CurrentUserResponse struct {
	Sub           string   `json:"sub"`
	Username      string   `json:"username,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified"`
	Roles         []string `json:"roles"`
}

// GetCurrentUserHandler reports the authenticated caller's identity and the
// normalized role set the gateway derived from their token.
func GetCurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		roles := middleware.GetRolesFromContext(r.Context())
		_ = utils.WriteOK(w, CurrentUserResponse{
			Sub:           claims.Subject,
			Username:      claims.PreferredUsername,
			Email:         claims.Email,
			EmailVerified: claims.EmailVerified,
			Roles:         roles.Names(),
		})
	}
}

// RolesResponse is the response body for GET /api/v1/me/roles
type RolesResponse struct {
	Roles []string `json:"roles"`
	Count int      `json:"count"`
}

// GetCurrentRolesHandler returns only the caller's normalized role set
func GetCurrentRolesHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles := middleware.GetRolesFromContext(r.Context())
		_ = utils.WriteOK(w, RolesResponse{
			Roles: roles.Names(),
			Count: roles.Len(),
		})
	}
}
