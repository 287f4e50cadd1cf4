package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hashed, err := hashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hashed)

	assert.True(t, verifyPassword("hunter2", hashed))
	assert.False(t, verifyPassword("hunter3", hashed))
}

func TestAccessTokenRoundtrip(t *testing.T) {
	s := newTestServer(t)

	token, err := s.createAccessToken("sales@pupscribe.in", accessTokenTTL)
	require.NoError(t, err)

	claims, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sales@pupscribe.in", claims["data"])
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestServer(t)

	token, err := s.createAccessToken("sales@pupscribe.in", -time.Minute)
	require.NoError(t, err)

	_, err = s.parseToken(token)
	assert.Error(t, err)
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	s := newTestServer(t)
	other := newTestServer(t)
	other.config.SecretKey = "different-secret"

	token, err := other.createAccessToken("sales@pupscribe.in", accessTokenTTL)
	require.NoError(t, err)

	_, err = s.parseToken(token)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	handler := s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "admin@pupscribe.in", claims["data"])
		w.WriteHeader(http.StatusNoContent)
	}))

	// No token at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Valid token.
	token, err := s.createAccessToken("admin@pupscribe.in", accessTokenTTL)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
