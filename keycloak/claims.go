package keycloak

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// RoleClaim is the object Keycloak nests role arrays in, both at realm
// scope ("realm_access") and per client inside "resource_access".
type RoleClaim struct {
	Roles []string `json:"roles"`
}

// ResourceAccess maps a client ID to the roles the token carries for it.
type ResourceAccess map[string]RoleClaim

// Claims represents the claims in a Keycloak-issued JWT token
type Claims struct {
	jwt.RegisteredClaims

	// Keycloak role namespaces. Either may be absent from a token.
	RealmAccess    RoleClaim      `json:"realm_access,omitempty"`
	ResourceAccess ResourceAccess `json:"resource_access,omitempty"`

	// AuthorizedParty is the `azp` claim. Keycloak access tokens issued to a
	// confidential client often name that client here instead of in `aud`.
	AuthorizedParty string `json:"azp,omitempty"`

	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	Scope             string `json:"scope,omitempty"`
	TokenType         string `json:"typ,omitempty"`
}

// ParsedClaims represents parsed and validated claims
type ParsedClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Username      string
	Name          string
	RealmRoles    []string
	ClientRoles   map[string][]string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// ExtractClaims parses claims from a JWT token without validation.
// This is useful when you already have a validated token and just need the claims.
func ExtractClaims(tokenString string) (*ParsedClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return parseClaims(claims)
}

// ExtractClaimsFromValidatedToken extracts claims from an already validated jwt.Token
func ExtractClaimsFromValidatedToken(token *jwt.Token) (*ParsedClaims, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return parseClaims(claims)
}

// parseClaims converts Claims to ParsedClaims
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Username:      claims.PreferredUsername,
		Name:          claims.Name,
		RealmRoles:    claims.RealmAccess.Roles,
		ClientRoles:   make(map[string][]string, len(claims.ResourceAccess)),
	}
	for client, access := range claims.ResourceAccess {
		parsed.ClientRoles[client] = access.Roles
	}

	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}

// Roles flattens the token's realm roles and the client roles belonging to
// clientID into a single deduplicated RoleSet.
func (c *Claims) Roles(clientID string) RoleSet {
	set := make(RoleSet, len(c.RealmAccess.Roles))
	set.addAll(c.RealmAccess.Roles)
	if access, ok := c.ResourceAccess[clientID]; ok {
		set.addAll(access.Roles)
	}
	return set
}

// ExtractUsername extracts only the preferred username from a token (fast path)
func ExtractUsername(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	return claims.PreferredUsername, nil
}
