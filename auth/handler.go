package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/upb/keycloak-gateway/config"
	"github.com/upb/keycloak-gateway/keycloak"
	"github.com/upb/keycloak-gateway/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName = "oauth_state"
	// SessionCookieName is the cookie name for the session token
	SessionCookieName   = "session"
	stateCookieMaxAge   = 600
	sessionCookieMaxAge = 86400 // Keycloak SSO session idle default
)

// TokenExchanger exchanges OAuth2 authorization codes for tokens via the realm's token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI, state string) (idToken string, err error)
}

// TokenValidator validates JWT tokens and returns their claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*keycloak.Claims, error)
}

// Handler handles the authorization-code flow (login, callback, logout)
// against the realm's auth and end-session endpoints.
type Handler struct {
	cfg       *config.Config
	exchanger TokenExchanger
	validator TokenValidator
	logger    *zap.Logger
}

// NewHandler creates a new auth handler with the given config, token exchanger, and validator.
func NewHandler(cfg *config.Config, exchanger TokenExchanger, validator TokenValidator, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		validator: validator,
		logger:    logger,
	}
}

// HandleLogin redirects to the realm's authorization endpoint
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	kc := h.cfg.Keycloak
	if kc.Realm == "" || kc.ClientID == "" {
		h.logger.Error("keycloak not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(kc.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	})

	authURL := buildAuthURL(kc.BaseURL, kc.Realm, kc.ClientID, kc.RedirectURI, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback exchanges the authorization code for tokens, validates the
// ID token, and sets the session cookie
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	kc := h.cfg.Keycloak
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   strings.HasPrefix(kc.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	})

	if h.exchanger == nil {
		h.logger.Error("token exchanger not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	idToken, err := h.exchanger.ExchangeCode(r.Context(), code, kc.RedirectURI, state)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	if h.validator == nil {
		h.logger.Error("token validator not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	claims, err := h.validator.ValidateToken(r.Context(), idToken)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid token")
		return
	}

	h.logger.Info("login successful",
		zap.String("sub", claims.Subject),
		zap.String("username", claims.PreferredUsername))

	secure := strings.HasPrefix(kc.RedirectURI, "https")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    idToken,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	redirectURL := kc.FrontEndURL
	if redirectURL == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleLogout clears the session cookie and redirects to the realm's
// end-session endpoint
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	kc := h.cfg.Keycloak
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   strings.HasPrefix(kc.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	})

	logoutURL := buildLogoutURL(kc.BaseURL, kc.Realm, kc.ClientID, kc.FrontEndURL)
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

func buildAuthURL(baseURL, realm, clientID, redirectURI, state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	return keycloak.AuthEndpoint(baseURL, realm) + "?" + params.Encode()
}

func buildLogoutURL(baseURL, realm, clientID, postLogoutURI string) string {
	params := url.Values{
		"client_id": {clientID},
	}
	if postLogoutURI != "" {
		params.Set("post_logout_redirect_uri", postLogoutURI)
	}
	return keycloak.LogoutEndpoint(baseURL, realm) + "?" + params.Encode()
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
