package authz

import (
	"net/http"

	"github.com/upb/keycloak-gateway/middleware"
	"github.com/upb/keycloak-gateway/utils"
	"go.uber.org/zap"
)

// Middleware enforces the store's route rules against the normalized role
// set placed in the context by the auth middleware. Paths with no rule pass
// through; an authenticated principal with an empty role set is only
// rejected when a rule actually demands a role. Must run after RequireAuth.
func Middleware(store *PolicyStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			required := store.RequiredRoles(r.URL.Path)
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			claims := middleware.GetClaimsFromContext(ctx)
			if claims == nil {
				logger.Error("route policy hit without authentication",
					zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
					zap.String("path", r.URL.Path))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			granted := middleware.GetRolesFromContext(ctx)
			if !granted.HasAny(required...) {
				logger.Warn("route policy denied request",
					zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
					zap.String("path", r.URL.Path),
					zap.String("sub", claims.Subject),
					zap.Strings("required_roles", required))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
