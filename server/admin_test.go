package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminToken(t *testing.T, s *Server) string {
	t.Helper()
	seedUser(t, s, "admin@pupscribe.in", "hunter2", "Admin", "AD", "", "admin")
	token, err := s.createAccessToken(map[string]any{"email": "admin@pupscribe.in", "role": "admin"}, accessTokenTTL)
	require.NoError(t, err)
	return token
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/api/admin/stats", nil, "")
	requireStatus(t, rec, http.StatusForbidden)

	token := adminToken(t, s)
	rec, body := doRequest(t, s, http.MethodGet, "/api/admin/stats", nil, token)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, 1.0, body["users"])
	assert.Equal(t, 0.0, body["orders"])
}

func TestAdminUserManagement(t *testing.T) {
	s := newTestServer(t)
	token := adminToken(t, s)

	rec, body := doRequest(t, s, http.MethodPost, "/api/admin/users", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "hunter2",
		"name":     "Rohan",
		"code":     "RO",
	}, token)
	requireStatus(t, rec, http.StatusCreated)
	userID := int64(body["user_id"].(float64))

	// Duplicate emails are rejected.
	rec, _ = doRequest(t, s, http.MethodPost, "/api/admin/users", map[string]string{
		"email": "sales@pupscribe.in", "password": "hunter2",
	}, token)
	requireStatus(t, rec, http.StatusBadRequest)

	rec, body = doRequest(t, s, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, rec, http.StatusOK)
	users := body["users"].([]any)
	require.Len(t, users, 2)
	// Hashed passwords never leave the server.
	for _, raw := range users {
		_, present := raw.(map[string]any)["password"]
		assert.False(t, present)
	}

	rec, _ = doRequest(t, s, http.MethodPut, "/api/admin/users/"+strconv64(userID), map[string]any{
		"role":     "admin",
		"password": "new-secret",
	}, token)
	requireStatus(t, rec, http.StatusOK)

	var role, hashed string
	require.NoError(t, s.db.QueryRow(`SELECT role, password FROM users WHERE id = ?`, userID).Scan(&role, &hashed))
	assert.Equal(t, "admin", role)
	assert.True(t, verifyPassword("new-secret", hashed))

	rec, _ = doRequest(t, s, http.MethodPut, "/api/admin/users/9999", map[string]any{"role": "admin"}, token)
	requireStatus(t, rec, http.StatusNotFound)
}
