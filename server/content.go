package server

import (
	"net/http"
	"time"
)

type announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) ListAnnouncementsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT id, title, body, created_at FROM announcements ORDER BY created_at DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch announcements.")
		return
	}
	defer rows.Close()

	announcements := []announcement{}
	for rows.Next() {
		var a announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.CreatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch announcements.")
			return
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch announcements.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"announcements": announcements})
}

type training struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListTrainingsHandler returns the active training material for the sales
// team, newest first.
func (s *Server) ListTrainingsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT id, title, description, video_url, created_at
		FROM trainings WHERE is_active = 1 ORDER BY created_at DESC`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch trainings.")
		return
	}
	defer rows.Close()

	trainings := []training{}
	for rows.Next() {
		var t training
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.VideoURL, &t.CreatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch trainings.")
			return
		}
		trainings = append(trainings, t)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch trainings.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"trainings": trainings})
}

type catalogue struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) ListCataloguesHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT id, name, url, brand, created_at FROM catalogues ORDER BY name`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch catalogues.")
		return
	}
	defer rows.Close()

	catalogues := []catalogue{}
	for rows.Next() {
		var c catalogue
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.Brand, &c.CreatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch catalogues.")
			return
		}
		catalogues = append(catalogues, c)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch catalogues.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"catalogues": catalogues})
}
