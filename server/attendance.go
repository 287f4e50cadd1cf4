package server

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// attendancePattern matches the SMS the biometric terminal forwards, e.g.
// "Dear Sir, Ramesh Kumar 9876543210 has punched attendance on 12-08-2026 09:15:00".
var attendancePattern = regexp.MustCompile(`Dear Sir,?\s*([\w\s]+)\s+(\d+)\s+has punched attendance on\s+([\d-]+\s+[\d:]+)`)

const swipeTimeLayout = "02-01-2006 15:04:05"

type attendanceEmployee struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	DeviceID string `json:"device_id"`
}

// AttendanceSwipeHandler ingests forwarded attendance SMS messages. Texts
// that do not match the expected shape are acknowledged without recording
// anything, so the SMS gateway never retries.
func (s *Server) AttendanceSwipeHandler(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	match := attendancePattern.FindStringSubmatch(text)
	if match == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Request Received"})
		return
	}

	mobile := strings.TrimSpace(match[2])
	swipeAt, err := time.Parse(swipeTimeLayout, strings.TrimSpace(match[3]))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date format"})
		return
	}

	var emp attendanceEmployee
	err = s.db.QueryRow(`SELECT id, name, phone, device_id FROM employees WHERE phone = ?`, mobile).
		Scan(&emp.ID, &emp.Name, &emp.Phone, &emp.DeviceID)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Employee not found"})
		return
	}
	if err != nil {
		s.Logger.Errorf("Failed to look up employee %s: %v", mobile, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Database error"})
		return
	}

	_, err = s.db.Exec(`INSERT INTO attendance (employee_id, employee_name, swipe_at, device_id) VALUES (?, ?, ?, ?)`,
		emp.ID, emp.Name, swipeAt, emp.DeviceID)
	if err != nil {
		s.Logger.Errorf("Failed to record attendance for employee %d: %v", emp.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Database error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Attendance recorded",
		"employee": emp,
	})
}
