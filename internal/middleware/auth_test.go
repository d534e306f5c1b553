package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoRole() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(RoleFromContext(r.Context())))
	})
}

func TestAuthenticator_SignParseRoundTrip(t *testing.T) {
	a := NewAuthenticator("test-secret-123")
	tok, err := a.Sign("op-1", "closer", time.Hour)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "op-1", c.UID)
	assert.Equal(t, "closer", c.Role)
	require.NotNil(t, c.ExpiresAt)
}

func TestAuthenticator_RejectsOtherSecretAndExpired(t *testing.T) {
	a := NewAuthenticator("test-secret-123")
	other := NewAuthenticator("another-secret")
	tok, err := other.Sign("op-1", "admin", time.Hour)
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)

	past := time.Now().Add(-2 * time.Hour)
	a.now = func() time.Time { return past }
	expired, err := a.Sign("op-1", "admin", time.Minute)
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.Parse(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthenticator_RejectsNoneAlgorithm(t *testing.T) {
	a := NewAuthenticator("test-secret-123")
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UID: "x", Role: "admin"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(s)
	assert.Error(t, err)
}

func TestWithAuth_RequireAuth(t *testing.T) {
	a := NewAuthenticator("test-secret-123")
	h := LocaleMiddleware(a.WithAuth(RequireAuth(echoRole(), "admin", "closer")))

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	})

	t.Run("wrong role", func(t *testing.T) {
		tok, err := a.Sign("op", "participant", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed", func(t *testing.T) {
		tok, err := a.Sign("op", "closer", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "closer", rec.Body.String())
	})

	t.Run("garbage token is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
