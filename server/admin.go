package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

func (s *Server) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]int{}
	for name, query := range map[string]string{
		"users":     `SELECT COUNT(*) FROM users`,
		"customers": `SELECT COUNT(*) FROM customers`,
		"products":  `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`,
		"orders":    `SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL`,
		"invoices":  `SELECT COUNT(*) FROM invoices`,
	} {
		var count int
		if err := s.db.QueryRow(query).Scan(&count); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch stats.")
			return
		}
		stats[name] = count
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT id, email, password, name, code, phone, role, status, created_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch users.")
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Code, &u.Phone,
			&u.Role, &u.Status, &u.CreatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch users.")
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch users.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type adminCreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (s *Server) AdminCreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	existing, err := s.userByEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user.")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	role := req.Role
	if role == "" {
		role = "salesperson"
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	res, err := s.db.Exec(`INSERT INTO users (email, password, name, code, phone, role) VALUES (?, ?, ?, ?, ?, ?)`,
		req.Email, hashed, req.Name, req.Code, req.Phone, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user.")
		return
	}
	userID, _ := res.LastInsertId()

	writeJSON(w, http.StatusCreated, map[string]any{"message": "User created", "user_id": userID})
}

var updatableUserColumns = map[string]string{
	"name":   "name",
	"code":   "code",
	"phone":  "phone",
	"role":   "role",
	"status": "status",
}

func (s *Server) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sets := []string{}
	args := []any{}
	for key, value := range body {
		column, ok := updatableUserColumns[key]
		if !ok || value == nil {
			continue
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if password, ok := body["password"].(string); ok && password != "" {
		hashed, err := hashPassword(password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update user.")
			return
		}
		sets = append(sets, "password = ?")
		args = append(args, hashed)
	}
	if len(sets) == 0 {
		writeError(w, http.StatusBadRequest, "No valid fields provided for update")
		return
	}

	args = append(args, id)
	res, err := s.db.Exec("UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update user.")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User updated"})
}
