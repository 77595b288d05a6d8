package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoIDToken is returned when a token response carries no id_token
var ErrNoIDToken = errors.New("token response contains no id_token")

// TokenEndpoint returns the realm's token endpoint URL
func TokenEndpoint(baseURL, realm string) string {
	return RealmURL(baseURL, realm) + "/protocol/openid-connect/token"
}

// AuthEndpoint returns the realm's authorization endpoint URL
func AuthEndpoint(baseURL, realm string) string {
	return RealmURL(baseURL, realm) + "/protocol/openid-connect/auth"
}

// LogoutEndpoint returns the realm's end-session endpoint URL
func LogoutEndpoint(baseURL, realm string) string {
	return RealmURL(baseURL, realm) + "/protocol/openid-connect/logout"
}

// TokenClient obtains tokens from the realm's token endpoint. All requests go
// through golang.org/x/oauth2, which form-encodes client_id, client_secret,
// grant_type and the grant-specific fields per the published contract.
type TokenClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// TokenClientConfig holds configuration for TokenClient
type TokenClientConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	HTTPTimeout  time.Duration
}

// NewTokenClient creates a token client for one realm and client registration
func NewTokenClient(config TokenClientConfig) *TokenClient {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	return &TokenClient{
		baseURL:      config.BaseURL,
		realm:        config.Realm,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		httpClient:   &http.Client{Timeout: config.HTTPTimeout},
	}
}

// ClientCredentialsToken obtains a service-account token via the
// client_credentials grant.
func (c *TokenClient) ClientCredentialsToken(ctx context.Context, scopes ...string) (*oauth2.Token, error) {
	cfg := &clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     TokenEndpoint(c.baseURL, c.realm),
		Scopes:       scopes,
	}

	token, err := cfg.Token(c.withHTTPClient(ctx))
	if err != nil {
		return nil, fmt.Errorf("client credentials grant failed: %w", err)
	}
	return token, nil
}

// PasswordToken obtains a token via the resource-owner password grant.
func (c *TokenClient) PasswordToken(ctx context.Context, username, password string, scopes ...string) (*oauth2.Token, error) {
	token, err := c.oauthConfig("", scopes).PasswordCredentialsToken(c.withHTTPClient(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("password grant failed: %w", err)
	}
	return token, nil
}

// Exchange trades an authorization code for tokens.
func (c *TokenClient) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	token, err := c.oauthConfig(redirectURI, nil).Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// ExchangeCode trades an authorization code for its ID token. It satisfies
// the auth handler's TokenExchanger interface.
func (c *TokenClient) ExchangeCode(ctx context.Context, code, redirectURI, state string) (string, error) {
	token, err := c.Exchange(ctx, code, redirectURI)
	if err != nil {
		return "", err
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", ErrNoIDToken
	}
	return idToken, nil
}

// oauthConfig builds the oauth2 config for the realm's endpoints
func (c *TokenClient) oauthConfig(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthEndpoint(c.baseURL, c.realm),
			TokenURL: TokenEndpoint(c.baseURL, c.realm),
		},
	}
}

// withHTTPClient pins the oauth2 transport to this client's http.Client
func (c *TokenClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}
