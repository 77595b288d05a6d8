package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/keycloak-gateway/app"
	"github.com/upb/keycloak-gateway/config"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	deps, err := app.NewDependencies(&config.Config{
		Environment: "development",
		Keycloak: config.KeycloakConfig{
			BaseURL:  "http://localhost:8080",
			Realm:    "demo",
			ClientID: "demo-api",
		},
	}, zap.NewNop())
	require.NoError(t, err)
	return SetupRoutes(deps)
}

func TestSetupRoutes(t *testing.T) {
	router := newTestRouter(t)

	t.Run("health endpoint is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("status endpoint is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("me endpoint requires authentication", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login redirects to the realm", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/realms/demo/protocol/openid-connect/auth")
	})

	t.Run("unknown route returns the JSON error envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"error":"not_found"`)
		assert.Contains(t, w.Body.String(), "endpoint not found")
	})

	t.Run("admin policy endpoint requires authentication", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/policy", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
