package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// istZone renders visit timestamps in the sales team's local time.
var istZone = time.FixedZone("IST", 5*3600+30*60)

const visitTimeLayout = "2006-01-02 15:04:05"

type dailyVisitUpdate struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	UploadedBy int64  `json:"uploaded_by"`
	CreatedAt  string `json:"created_at"`
}

type dailyVisit struct {
	ID        int64              `json:"id"`
	Plan      string             `json:"plan"`
	CreatedBy int64              `json:"created_by"`
	SelfieURL string             `json:"selfie_url,omitempty"`
	Updates   []dailyVisitUpdate `json:"updates"`
	CreatedAt string             `json:"created_at"`
}

func (s *Server) dailyVisitUpdates(visitID int64) ([]dailyVisitUpdate, error) {
	rows, err := s.db.Query(`SELECT id, text, uploaded_by, created_at
		FROM daily_visit_updates WHERE daily_visit_id = ? ORDER BY id`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []dailyVisitUpdate{}
	for rows.Next() {
		var u dailyVisitUpdate
		var createdAt time.Time
		if err := rows.Scan(&u.ID, &u.Text, &u.UploadedBy, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = createdAt.In(istZone).Format(visitTimeLayout)
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func (s *Server) loadDailyVisit(id string) (dailyVisit, error) {
	var v dailyVisit
	var createdAt time.Time
	err := s.db.QueryRow(`SELECT id, plan, created_by, selfie_url, created_at
		FROM daily_visits WHERE id = ?`, id).
		Scan(&v.ID, &v.Plan, &v.CreatedBy, &v.SelfieURL, &createdAt)
	if err != nil {
		return v, err
	}
	v.CreatedAt = createdAt.In(istZone).Format(visitTimeLayout)
	v.Updates, err = s.dailyVisitUpdates(v.ID)
	return v, err
}

func (s *Server) ListDailyVisitsHandler(w http.ResponseWriter, r *http.Request) {
	createdBy := r.URL.Query().Get("created_by")
	if createdBy == "" {
		writeError(w, http.StatusBadRequest, "created_by is required")
		return
	}

	rows, err := s.db.Query(`SELECT id, plan, created_by, selfie_url, created_at
		FROM daily_visits WHERE created_by = ? ORDER BY created_at DESC, id DESC`, createdBy)
	if err != nil {
		s.Logger.Errorf("Failed to query daily visits: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch daily visits.")
		return
	}
	defer rows.Close()

	visits := []dailyVisit{}
	for rows.Next() {
		var v dailyVisit
		var createdAt time.Time
		if err := rows.Scan(&v.ID, &v.Plan, &v.CreatedBy, &v.SelfieURL, &createdAt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch daily visits.")
			return
		}
		v.CreatedAt = createdAt.In(istZone).Format(visitTimeLayout)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch daily visits.")
		return
	}

	for i := range visits {
		updates, err := s.dailyVisitUpdates(visits[i].ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch daily visits.")
			return
		}
		visits[i].Updates = updates
	}

	writeJSON(w, http.StatusOK, map[string]any{"daily_visits": visits})
}

type dailyVisitRequest struct {
	Plan      string `json:"plan"`
	CreatedBy int64  `json:"created_by"`
	SelfieURL string `json:"selfie_url"`
}

func (s *Server) CreateDailyVisitHandler(w http.ResponseWriter, r *http.Request) {
	var req dailyVisitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Plan == "" || req.CreatedBy == 0 {
		writeError(w, http.StatusBadRequest, "plan and created_by are required")
		return
	}

	res, err := s.db.Exec(`INSERT INTO daily_visits (plan, created_by, selfie_url) VALUES (?, ?, ?)`,
		req.Plan, req.CreatedBy, req.SelfieURL)
	if err != nil {
		s.Logger.Errorf("Failed to insert daily visit: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create daily visit.")
		return
	}
	id, _ := res.LastInsertId()

	s.notifyDailyVisit("create_daily_visit", req.CreatedBy, strconv64(id))

	visit, err := s.loadDailyVisit(strconv64(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create daily visit.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "You're doing great! Daily visit created successfully!",
		"daily_visit": visit,
	})
}

func (s *Server) GetDailyVisitHandler(w http.ResponseWriter, r *http.Request) {
	visit, err := s.loadDailyVisit(chi.URLParam(r, "id"))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Daily visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch daily visit.")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

type dailyVisitUpdateRequest struct {
	Plan       *string `json:"plan"`
	UpdateText *string `json:"update_text"`
	UpdateID   int64   `json:"update_id"`
	UploadedBy int64   `json:"uploaded_by"`
}

// UpdateDailyVisitHandler edits the visit plan and/or appends or edits a
// progress update on the visit.
func (s *Server) UpdateDailyVisitHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dailyVisitUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var createdBy int64
	err := s.db.QueryRow(`SELECT created_by FROM daily_visits WHERE id = ?`, id).Scan(&createdBy)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Daily visit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update daily visit.")
		return
	}

	if req.Plan != nil {
		_, err := s.db.Exec(`UPDATE daily_visits SET plan = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			*req.Plan, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update daily visit.")
			return
		}
	}

	if req.UpdateText != nil {
		if req.UpdateID != 0 {
			res, err := s.db.Exec(`UPDATE daily_visit_updates SET text = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ? AND daily_visit_id = ?`, *req.UpdateText, req.UpdateID, id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to update daily visit.")
				return
			}
			if n, _ := res.RowsAffected(); n == 0 {
				writeError(w, http.StatusNotFound, "Update entry not found")
				return
			}
		} else {
			_, err := s.db.Exec(`INSERT INTO daily_visit_updates (daily_visit_id, text, uploaded_by) VALUES (?, ?, ?)`,
				id, *req.UpdateText, req.UploadedBy)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to update daily visit.")
				return
			}
		}
		s.db.Exec(`UPDATE daily_visits SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	}

	s.notifyDailyVisit("update_daily_visit", createdBy, id)

	visit, err := s.loadDailyVisit(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update daily visit.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Daily visit updated successfully!",
		"daily_visit": visit,
	})
}

// notifyDailyVisit pings the configured contacts over WhatsApp with the
// salesperson's name and a button link to the visit.
func (s *Server) notifyDailyVisit(templateName string, createdBy int64, visitID string) {
	var salesperson string
	s.db.QueryRow(`SELECT name FROM users WHERE id = ?`, createdBy).Scan(&salesperson)

	language := s.templateLanguage(templateName)
	for _, contact := range s.config.NotifyContacts {
		err := s.notifier.SendWhatsApp(contact.Phone, templateName, language,
			[]string{contact.Name, salesperson}, visitID)
		if err != nil {
			s.Logger.Errorf("Failed to notify %s about daily visit %s: %v", contact.Name, visitID, err)
		}
	}
}
