package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Shop hooks track how much shelf space (display hooks) each product
// category holds in a customer's store. A visit records one row per
// category; updates replace the recorded rows wholesale.

type hookCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) ListHookCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT id, name FROM hook_categories WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch hook categories.")
		return
	}
	defer rows.Close()

	categories := []hookCategory{}
	for rows.Next() {
		var c hookCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch hook categories.")
			return
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch hook categories.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

type shopHookEntry struct {
	CategoryID     int64 `json:"category_id"`
	HooksAvailable int64 `json:"hooks_available"`
	TotalHooks     int64 `json:"total_hooks"`
}

type shopHookRequest struct {
	CustomerID int64           `json:"customer_id"`
	CreatedBy  int64           `json:"created_by"`
	Hooks      []shopHookEntry `json:"hooks"`
}

type shopHook struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	CreatedBy  int64           `json:"created_by"`
	Hooks      []shopHookEntry `json:"hooks"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s *Server) CreateShopHookHandler(w http.ResponseWriter, r *http.Request) {
	var req shopHookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == 0 || req.CreatedBy == 0 {
		writeError(w, http.StatusBadRequest, "customer_id and created_by are required")
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook.")
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO shop_hooks (customer_id, created_by) VALUES (?, ?)`,
		req.CustomerID, req.CreatedBy)
	if err != nil {
		s.Logger.Errorf("Failed to insert shop hook: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create hook.")
		return
	}
	id, _ := res.LastInsertId()

	for _, entry := range req.Hooks {
		_, err := tx.Exec(`INSERT INTO shop_hook_entries (shop_hook_id, category_id, hooks_available, total_hooks)
			VALUES (?, ?, ?, ?)`, id, entry.CategoryID, entry.HooksAvailable, entry.TotalHooks)
		if err != nil {
			s.Logger.Errorf("Failed to insert shop hook entry: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create hook.")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Shop hook created", "id": id})
}

func (s *Server) shopHookEntries(hookID int64) ([]shopHookEntry, error) {
	rows, err := s.db.Query(`SELECT category_id, hooks_available, total_hooks
		FROM shop_hook_entries WHERE shop_hook_id = ? ORDER BY id`, hookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []shopHookEntry{}
	for rows.Next() {
		var e shopHookEntry
		if err := rows.Scan(&e.CategoryID, &e.HooksAvailable, &e.TotalHooks); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanShopHook(row interface{ Scan(...any) error }) (shopHook, error) {
	var h shopHook
	err := row.Scan(&h.ID, &h.CustomerID, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (s *Server) ListShopHooksHandler(w http.ResponseWriter, r *http.Request) {
	createdBy := r.URL.Query().Get("created_by")
	if createdBy == "" {
		writeError(w, http.StatusBadRequest, "created_by is required")
		return
	}

	rows, err := s.db.Query(`SELECT id, customer_id, created_by, created_at, updated_at
		FROM shop_hooks WHERE created_by = ? ORDER BY created_at DESC, id DESC`, createdBy)
	if err != nil {
		s.Logger.Errorf("Failed to query shop hooks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch hooks.")
		return
	}
	defer rows.Close()

	hooks := []shopHook{}
	for rows.Next() {
		h, err := scanShopHook(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch hooks.")
			return
		}
		hooks = append(hooks, h)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch hooks.")
		return
	}

	for i := range hooks {
		entries, err := s.shopHookEntries(hooks[i].ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch hooks.")
			return
		}
		hooks[i].Hooks = entries
	}

	writeJSON(w, http.StatusOK, map[string]any{"hooks": hooks})
}

func (s *Server) GetShopHookHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h, err := scanShopHook(s.db.QueryRow(`SELECT id, customer_id, created_by, created_at, updated_at
		FROM shop_hooks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Hook not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch hook.")
		return
	}

	h.Hooks, err = s.shopHookEntries(h.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch hook.")
		return
	}

	writeJSON(w, http.StatusOK, h)
}

func (s *Server) UpdateShopHookHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req shopHookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook.")
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE shop_hooks SET customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		req.CustomerID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook.")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Hook not found")
		return
	}

	// Recorded categories are replaced wholesale, like order items.
	if _, err := tx.Exec(`DELETE FROM shop_hook_entries WHERE shop_hook_id = ?`, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook.")
		return
	}
	for _, entry := range req.Hooks {
		_, err := tx.Exec(`INSERT INTO shop_hook_entries (shop_hook_id, category_id, hooks_available, total_hooks)
			VALUES (?, ?, ?, ?)`, id, entry.CategoryID, entry.HooksAvailable, entry.TotalHooks)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update hook.")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Shop hook updated"})
}
