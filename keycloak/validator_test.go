package keycloak

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to generate RSA key pair
func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey, &privateKey.PublicKey
}

// Test helper to create a mock JWKS server
func createMockJWKSServer(t *testing.T, publicKey *rsa.PublicKey, kid string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nBytes := publicKey.N.Bytes()
		eBytes := big.NewInt(int64(publicKey.E)).Bytes()

		jwks := JWKS{
			Keys: []JWK{
				{
					Kid: kid,
					Kty: "RSA",
					Alg: "RS256",
					Use: "sig",
					N:   base64.RawURLEncoding.EncodeToString(nBytes),
					E:   base64.RawURLEncoding.EncodeToString(eBytes),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
}

// tokenOptions tweaks the test token away from its valid defaults
type tokenOptions struct {
	issuer   string
	audience jwt.ClaimStrings
	azp      string
	subject  string
	expires  time.Duration
}

// Test helper to create a signed test token
func createTestToken(t *testing.T, privateKey *rsa.PrivateKey, kid string, opts tokenOptions) string {
	now := time.Now()

	if opts.subject == "" {
		opts.subject = uuid.New().String()
	}
	if opts.expires == 0 {
		opts.expires = time.Hour
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    opts.issuer,
			Subject:   opts.subject,
			Audience:  opts.audience,
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.expires)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AuthorizedParty:   opts.azp,
		Email:             "test@example.com",
		EmailVerified:     true,
		PreferredUsername: "testuser",
		TokenType:         "Bearer",
		RealmAccess:       RoleClaim{Roles: []string{"user"}},
		ResourceAccess: ResourceAccess{
			"demo-api": RoleClaim{Roles: []string{"api-reader"}},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	tokenString, err := token.SignedString(privateKey)
	require.NoError(t, err)

	return tokenString
}

// newTestValidator points a validator at a mock JWKS server
func newTestValidator(jwksURL, issuer, clientID string, skipAudience bool) *Validator {
	return &Validator{
		issuer:            issuer,
		clientID:          clientID,
		jwksURL:           jwksURL,
		skipAudienceCheck: skipAudience,
		httpClient:        &http.Client{Timeout: 5 * time.Second},
		jwksCacheTTL:      1 * time.Hour,
		keyCache:          make(map[string]*rsa.PublicKey),
	}
}

const testIssuer = "https://sso.example.com/realms/demo"

func TestNewValidator(t *testing.T) {
	validator := NewValidator(Config{
		BaseURL:  "https://sso.example.com/",
		Realm:    "demo",
		ClientID: "demo-api",
	})

	assert.NotNil(t, validator)
	assert.Equal(t, testIssuer, validator.issuer)
	assert.Equal(t, testIssuer+"/protocol/openid-connect/certs", validator.jwksURL)
	assert.Equal(t, "demo-api", validator.clientID)
	assert.False(t, validator.skipAudienceCheck)
	assert.NotNil(t, validator.httpClient)
	assert.NotNil(t, validator.keyCache)
}

func TestFetchJWKS(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	kid := "test-kid-123"
	server := createMockJWKSServer(t, publicKey, kid)
	defer server.Close()

	validator := newTestValidator(server.URL, testIssuer, "demo-api", false)

	ctx := context.Background()

	// First fetch - should hit server
	jwks, err := validator.FetchJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, kid, jwks.Keys[0].Kid)

	// Second fetch - should use cache (same pointer)
	jwks2, err := validator.FetchJWKS(ctx)
	require.NoError(t, err)
	assert.True(t, jwks == jwks2)
}

func TestFetchJWKSServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	validator := newTestValidator(server.URL, testIssuer, "demo-api", false)

	_, err := validator.FetchJWKS(context.Background())
	assert.ErrorIs(t, err, ErrJWKSFetchFailed)
}

func TestValidateToken(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	kid := "test-kid"
	server := createMockJWKSServer(t, publicKey, kid)
	defer server.Close()

	ctx := context.Background()

	t.Run("valid token with matching audience", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"demo-api"},
		})

		claims, err := validator.ValidateToken(ctx, tokenString)
		require.NoError(t, err)
		assert.Equal(t, "testuser", claims.PreferredUsername)
		assert.Equal(t, []string{"user"}, claims.RealmAccess.Roles)
		assert.Equal(t, []string{"api-reader", "user"}, claims.Roles("demo-api").Names())
	})

	t.Run("valid token with azp instead of aud", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"account"},
			azp:      "demo-api",
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.NoError(t, err)
	})

	t.Run("wrong audience rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"other-client"},
			azp:      "other-client",
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrInvalidAudience)
	})

	t.Run("wrong audience accepted when audience check skipped", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", true)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"other-client"},
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.NoError(t, err)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   "https://sso.example.com/realms/other",
			audience: jwt.ClaimStrings{"demo-api"},
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, kid, tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"demo-api"},
			expires:  -time.Hour,
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("unknown kid rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		tokenString := createTestToken(t, privateKey, "unknown-kid", tokenOptions{
			issuer:   testIssuer,
			audience: jwt.ClaimStrings{"demo-api"},
		})

		_, err := validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non-RSA signing method rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   uuid.New().String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		token.Header["kid"] = kid
		tokenString, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RSA variant other than RS256 rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		token := jwt.NewWithClaims(jwt.SigningMethodRS512, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   uuid.New().String(),
				Audience:  jwt.ClaimStrings{"demo-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		token.Header["kid"] = kid
		tokenString, err := token.SignedString(privateKey)
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		validator := newTestValidator(server.URL, testIssuer, "demo-api", false)
		_, err := validator.ValidateToken(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestInvalidateCache(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	server := createMockJWKSServer(t, publicKey, "kid-1")
	defer server.Close()

	validator := newTestValidator(server.URL, testIssuer, "demo-api", false)

	_, err := validator.FetchJWKS(context.Background())
	require.NoError(t, err)

	stats := validator.GetCacheStats()
	assert.Equal(t, true, stats["jwks_cached"])

	validator.InvalidateCache()

	stats = validator.GetCacheStats()
	assert.Equal(t, false, stats["jwks_cached"])
	assert.Equal(t, 0, stats["cached_keys_count"])
}

func TestRealmURL(t *testing.T) {
	assert.Equal(t, testIssuer, RealmURL("https://sso.example.com", "demo"))
	assert.Equal(t, testIssuer, RealmURL("https://sso.example.com/", "demo"))
}
