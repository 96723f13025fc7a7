package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-planner/backend/internal/auth"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func validClaims(email string) tokenClaims {
	now := time.Now()
	return tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://project.supabase.co/auth/v1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func signHS256(t *testing.T, c tokenClaims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func signRS256(t *testing.T, c tokenClaims, kid string, key *rsa.PrivateKey) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func toJWK(kid string, key rsa.PublicKey) map[string]string {
	return map[string]string{
		"kty": "RSA",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func TestNewVerifier_RequiresKeySource(t *testing.T) {
	_, err := auth.NewVerifier(auth.Config{})

	assert.Error(t, err)
}

func TestVerifyEmail_HS256(t *testing.T) {
	v, err := auth.NewVerifier(auth.Config{
		Secret:   testSecret,
		Issuer:   "https://project.supabase.co/auth/v1",
		Audience: "authenticated",
	})
	require.NoError(t, err)

	email, err := v.VerifyEmail(signHS256(t, validClaims("alice@example.com"), testSecret))

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestVerifyEmail_Rejections(t *testing.T) {
	v, err := auth.NewVerifier(auth.Config{Secret: testSecret, Audience: "authenticated"})
	require.NoError(t, err)

	expired := validClaims("alice@example.com")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExp := validClaims("alice@example.com")
	noExp.ExpiresAt = nil

	wrongAud := validClaims("alice@example.com")
	wrongAud.Audience = jwt.ClaimStrings{"service_role"}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", signHS256(t, validClaims("alice@example.com"), "another-secret-of-sufficient-length!!")},
		{"expired", signHS256(t, expired, testSecret)},
		{"no expiry", signHS256(t, noExp, testSecret)},
		{"wrong audience", signHS256(t, wrongAud, testSecret)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.VerifyEmail(tc.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestVerifyEmail_MissingEmailClaim(t *testing.T) {
	v, err := auth.NewVerifier(auth.Config{Secret: testSecret})
	require.NoError(t, err)

	_, err = v.VerifyEmail(signHS256(t, validClaims(""), testSecret))

	assert.ErrorIs(t, err, auth.ErrMissingEmail)
}

func TestVerifyEmail_JWKSRefreshOnUnknownKid(t *testing.T) {
	key1, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var rotated atomic.Bool
	var fetches atomic.Int32
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		keys := []map[string]string{toJWK("kid-1", key1.PublicKey)}
		if rotated.Load() {
			keys = []map[string]string{toJWK("kid-2", key2.PublicKey)}
		}
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
	}))
	defer jwks.Close()

	v, err := auth.NewVerifier(auth.Config{JWKSURL: jwks.URL})
	require.NoError(t, err)

	email, err := v.VerifyEmail(signRS256(t, validClaims("a@example.com"), "kid-1", key1))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
	assert.EqualValues(t, 1, fetches.Load(), "cached keys are reused")

	rotated.Store(true)
	email, err = v.VerifyEmail(signRS256(t, validClaims("b@example.com"), "kid-2", key2))
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", email)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestVerifyEmail_JWKSDoesNotAcceptHS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{toJWK("kid-1", key.PublicKey)}})
	}))
	defer jwks.Close()

	v, err := auth.NewVerifier(auth.Config{JWKSURL: jwks.URL})
	require.NoError(t, err)

	_, err = v.VerifyEmail(signHS256(t, validClaims("a@example.com"), testSecret))

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestEmailContext(t *testing.T) {
	_, ok := auth.EmailFromContext(context.Background())
	assert.False(t, ok)

	email, ok := auth.EmailFromContext(auth.WithEmail(context.Background(), "a@example.com"))
	assert.True(t, ok)
	assert.Equal(t, "a@example.com", email)
}
