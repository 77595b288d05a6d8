package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Keycloak      KeycloakConfig
	Authz         AuthzConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// KeycloakConfig holds Keycloak authentication configuration
type KeycloakConfig struct {
	BaseURL      string // Keycloak server base URL (e.g. https://sso.example.com)
	Realm        string
	ClientID     string
	ClientSecret string
	RedirectURI  string // OAuth2 callback URL
	FrontEndURL  string // Post-login redirect target (loaded from FRONT_END_URL)
	JWKSCacheTTL time.Duration
	HTTPTimeout  time.Duration
	// SkipAudienceCheck disables audience validation on incoming tokens.
	// A development-only escape hatch; Validate rejects it in production.
	SkipAudienceCheck bool
}

// AuthzConfig holds route authorization configuration
type AuthzConfig struct {
	// RoutePolicy is a comma-separated list of "prefix=role1|role2" rules,
	// e.g. "/api/v1/admin=admin,/api/v1/reports=auditor|admin".
	RoutePolicy string
	// AdminRole is the role required to manage the route policy at runtime.
	AdminRole string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8443),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Keycloak: KeycloakConfig{
			BaseURL:           getEnv("KEYCLOAK_BASE_URL", "http://localhost:8080"),
			Realm:             getEnv("KEYCLOAK_REALM", ""),
			ClientID:          getEnv("KEYCLOAK_CLIENT_ID", ""),
			ClientSecret:      getEnv("KEYCLOAK_CLIENT_SECRET", ""),
			RedirectURI:       getEnv("KEYCLOAK_REDIRECT_URI", "http://localhost:8443/auth/callback"),
			FrontEndURL:       getEnv("FRONT_END_URL", "http://localhost:5173"),
			JWKSCacheTTL:      getEnvAsDuration("KEYCLOAK_JWKS_CACHE_TTL", 1*time.Hour),
			HTTPTimeout:       getEnvAsDuration("KEYCLOAK_HTTP_TIMEOUT", 10*time.Second),
			SkipAudienceCheck: getEnvAsBool("KEYCLOAK_SKIP_AUDIENCE_CHECK", false),
		},
		Authz: AuthzConfig{
			RoutePolicy: getEnv("ROUTE_POLICY", ""),
			AdminRole:   getEnv("ROUTE_POLICY_ADMIN_ROLE", "policy-admin"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.Keycloak.Realm == "" {
			return fmt.Errorf("keycloak realm is required in production")
		}
		if c.Keycloak.ClientID == "" {
			return fmt.Errorf("keycloak client ID is required in production")
		}
		// Audience validation is a development-only workaround and must never
		// leak into production configuration.
		if c.Keycloak.SkipAudienceCheck {
			return fmt.Errorf("KEYCLOAK_SKIP_AUDIENCE_CHECK cannot be enabled in production")
		}
	}

	if c.Keycloak.BaseURL == "" {
		return fmt.Errorf("keycloak base URL is required")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
