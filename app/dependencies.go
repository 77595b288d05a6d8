package app

import (
	"fmt"

	"github.com/upb/keycloak-gateway/auth"
	"github.com/upb/keycloak-gateway/authz"
	"github.com/upb/keycloak-gateway/config"
	"github.com/upb/keycloak-gateway/keycloak"
	"github.com/upb/keycloak-gateway/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Keycloak
	Validator   *keycloak.Validator
	TokenClient *keycloak.TokenClient

	// Authorization
	RoutePolicy *authz.PolicyStore

	// Auth
	authHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

// AuthHandler returns the auth handler for route wiring
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initKeycloak(cfg)

	if err := deps.initRoutePolicy(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize route policy: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("realm", cfg.Keycloak.Realm),
		zap.String("client_id", cfg.Keycloak.ClientID))
	return deps, nil
}

// initKeycloak initializes the token validator and token client
func (d *Dependencies) initKeycloak(cfg *config.Config) {
	kc := cfg.Keycloak

	d.Validator = keycloak.NewValidator(keycloak.Config{
		BaseURL:           kc.BaseURL,
		Realm:             kc.Realm,
		ClientID:          kc.ClientID,
		SkipAudienceCheck: kc.SkipAudienceCheck,
		CacheTTL:          kc.JWKSCacheTTL,
		HTTPTimeout:       kc.HTTPTimeout,
	})

	d.TokenClient = keycloak.NewTokenClient(keycloak.TokenClientConfig{
		BaseURL:      kc.BaseURL,
		Realm:        kc.Realm,
		ClientID:     kc.ClientID,
		ClientSecret: kc.ClientSecret,
		HTTPTimeout:  kc.HTTPTimeout,
	})

	if kc.SkipAudienceCheck {
		d.Logger.Warn("audience validation disabled; development use only")
	}
}

// initRoutePolicy parses the configured route policy rules
func (d *Dependencies) initRoutePolicy(cfg *config.Config) error {
	store, err := authz.ParseRoutePolicy(cfg.Authz.RoutePolicy)
	if err != nil {
		return err
	}
	d.RoutePolicy = store

	for _, rule := range store.Rules() {
		d.Logger.Info("route policy rule loaded",
			zap.String("prefix", rule.Prefix),
			zap.Strings("roles", rule.Roles))
	}
	return nil
}

// initAuth initializes the auth middleware and the browser login flow handler
func (d *Dependencies) initAuth(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Validator, cfg.Keycloak.ClientID, d.Logger)
	d.authHandler = auth.NewHandler(cfg, d.TokenClient, d.Validator, d.Logger)
}
