package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/pupscribe/orderform/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) userByEmail(email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(`SELECT id, email, password, name, code, phone, role, status, created_at
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Code, &u.Phone, &u.Role, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	existing, err := s.userByEmail(req.Email)
	if err != nil {
		s.Logger.Errorf("Failed to look up user: %v", err)
		writeError(w, http.StatusInternalServerError, "Error inserting user in database")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error inserting user in database")
		return
	}

	res, err := s.db.Exec(`INSERT INTO users (email, password, name, code, phone) VALUES (?, ?, ?, ?, ?)`,
		req.Email, hashed, req.Name, req.Code, req.Phone)
	if err != nil {
		s.Logger.Errorf("Failed to insert user: %v", err)
		writeError(w, http.StatusBadRequest, "Error inserting user in database")
		return
	}
	userID, _ := res.LastInsertId()

	token, err := s.createAccessToken(req.Email, accessTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create access token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "User registered successfully",
		"user_id":      userID,
		"access_token": token,
	})
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.userByEmail(req.Email)
	if err != nil {
		s.Logger.Errorf("Failed to look up user: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || user.Status != "active" || !verifyPassword(req.Password, user.Password) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.createAccessToken(user, accessTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create access token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"user_id":      user.ID,
		"user":         user,
		"access_token": token,
	})
}

func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid authentication")
		return
	}

	claims, err := s.parseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": claims["data"]})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Always answer with the generic message to prevent email enumeration.
	generic := map[string]string{"message": "If the email exists, a reset link has been sent."}

	user, err := s.userByEmail(req.Email)
	if err != nil || user == nil {
		writeJSON(w, http.StatusOK, generic)
		return
	}

	token, err := s.createAccessToken(req.Email, passwordResetTokenTTL)
	if err != nil {
		writeJSON(w, http.StatusOK, generic)
		return
	}

	expiresAt := time.Now().UTC().Add(passwordResetTokenTTL)
	if _, err := s.db.Exec(`INSERT INTO password_resets (email, token, expires_at) VALUES (?, ?, ?)`,
		req.Email, token, expiresAt); err != nil {
		s.Logger.Errorf("Failed to store password reset: %v", err)
		writeJSON(w, http.StatusOK, generic)
		return
	}

	resetLink := fmt.Sprintf("%s?token=%s", s.config.FrontendResetURL, token)
	go func() {
		if err := s.notifier.SendResetEmail(req.Email, resetLink); err != nil {
			s.Logger.Errorf("Failed to send reset email to %s: %v", req.Email, err)
		}
	}()

	writeJSON(w, http.StatusOK, generic)
}

func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, err := s.parseToken(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid token")
		return
	}
	email, _ := claims["data"].(string)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Invalid token")
		return
	}

	var id int64
	var expiresAt time.Time
	err = s.db.QueryRow(`SELECT id, expires_at FROM password_resets WHERE token = ? AND email = ?`,
		req.Token, email).Scan(&id, &expiresAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	if expiresAt.Before(time.Now().UTC()) {
		s.db.Exec(`DELETE FROM password_resets WHERE id = ?`, id)
		writeError(w, http.StatusBadRequest, "Token has expired")
		return
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	if _, err := s.db.Exec(`UPDATE users SET password = ? WHERE email = ?`, hashed, email); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	s.db.Exec(`DELETE FROM password_resets WHERE id = ?`, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
}
