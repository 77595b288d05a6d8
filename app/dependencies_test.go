package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/keycloak-gateway/config"
	"go.uber.org/zap"
)

func devConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Keycloak: config.KeycloakConfig{
			BaseURL:      "http://localhost:8080",
			Realm:        "demo",
			ClientID:     "demo-api",
			ClientSecret: "s3cret",
		},
	}
}

func TestNewDependencies(t *testing.T) {
	deps, err := NewDependencies(devConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, deps.Config)
	assert.NotNil(t, deps.Logger)
	assert.NotNil(t, deps.Validator)
	assert.NotNil(t, deps.TokenClient)
	assert.NotNil(t, deps.RoutePolicy)
	assert.NotNil(t, deps.AuthMiddleware)
	assert.NotNil(t, deps.AuthHandler())
}

func TestNewDependenciesRoutePolicy(t *testing.T) {
	cfg := devConfig()
	cfg.Authz.RoutePolicy = "/api/v1/admin=admin,/api/v1/reports=auditor|admin"

	deps, err := NewDependencies(cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"admin"}, deps.RoutePolicy.RequiredRoles("/api/v1/admin/users"))
	assert.Equal(t, []string{"auditor", "admin"}, deps.RoutePolicy.RequiredRoles("/api/v1/reports"))
	assert.Nil(t, deps.RoutePolicy.RequiredRoles("/api/v1/me"))
}

func TestNewDependenciesInvalidRoutePolicy(t *testing.T) {
	cfg := devConfig()
	cfg.Authz.RoutePolicy = "not-a-policy"

	_, err := NewDependencies(cfg, zap.NewNop())
	assert.Error(t, err)
}
