package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodPost, "/api/users/register", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "hunter2",
		"name":     "Rohan",
		"code":     "RO",
	}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.NotEmpty(t, body["access_token"])

	// Registering the same email again fails.
	rec, body = doRequest(t, s, http.MethodPost, "/api/users/register", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "hunter2",
	}, "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Email already registered", body["detail"])

	rec, body = doRequest(t, s, http.MethodPost, "/api/users/login", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "hunter2",
	}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Login successful", body["message"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	rec, body = doRequest(t, s, http.MethodGet, "/api/users/me", nil, token)
	requireStatus(t, rec, http.StatusOK)
	user, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sales@pupscribe.in", user["email"])
}

func TestLoginRejectsWrongPasswordAndInactiveUsers(t *testing.T) {
	s := newTestServer(t)
	seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")

	rec, body := doRequest(t, s, http.MethodPost, "/api/users/login", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "wrong",
	}, "")
	requireStatus(t, rec, http.StatusUnauthorized)
	assert.Equal(t, "Incorrect email or password", body["detail"])

	_, err := s.db.Exec(`UPDATE users SET status = 'inactive' WHERE email = ?`, "sales@pupscribe.in")
	require.NoError(t, err)

	rec, _ = doRequest(t, s, http.MethodPost, "/api/users/login", map[string]string{
		"email":    "sales@pupscribe.in",
		"password": "hunter2",
	}, "")
	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestForgotPasswordDoesNotLeakAccounts(t *testing.T) {
	s := newTestServer(t)
	seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")

	generic := "If the email exists, a reset link has been sent."

	rec, body := doRequest(t, s, http.MethodPost, "/api/users/forgot_password", map[string]string{
		"email": "nobody@pupscribe.in",
	}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, generic, body["message"])

	rec, body = doRequest(t, s, http.MethodPost, "/api/users/forgot_password", map[string]string{
		"email": "sales@pupscribe.in",
	}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, generic, body["message"])

	// Only the real account got a reset entry.
	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM password_resets`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestResetPasswordFlow(t *testing.T) {
	s := newTestServer(t)
	seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")

	rec, _ := doRequest(t, s, http.MethodPost, "/api/users/forgot_password", map[string]string{
		"email": "sales@pupscribe.in",
	}, "")
	requireStatus(t, rec, http.StatusOK)

	var token string
	require.NoError(t, s.db.QueryRow(`SELECT token FROM password_resets WHERE email = ?`,
		"sales@pupscribe.in").Scan(&token))

	rec, body := doRequest(t, s, http.MethodPost, "/api/users/reset_password", map[string]string{
		"token":        token,
		"new_password": "correct-horse",
	}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Password has been reset successfully", body["message"])

	// The token is single use.
	rec, _ = doRequest(t, s, http.MethodPost, "/api/users/reset_password", map[string]string{
		"token":        token,
		"new_password": "again",
	}, "")
	requireStatus(t, rec, http.StatusBadRequest)

	// Old password no longer works, new one does.
	rec, _ = doRequest(t, s, http.MethodPost, "/api/users/login", map[string]string{
		"email": "sales@pupscribe.in", "password": "hunter2",
	}, "")
	requireStatus(t, rec, http.StatusUnauthorized)

	rec, _ = doRequest(t, s, http.MethodPost, "/api/users/login", map[string]string{
		"email": "sales@pupscribe.in", "password": "correct-horse",
	}, "")
	requireStatus(t, rec, http.StatusOK)
}
