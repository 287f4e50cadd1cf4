package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pupscribe/orderform/pkg"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schemaBytes, err := schema.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schemaBytes))
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	cfg := pkg.Config{
		SecretKey: "test-secret",
		RootDir:   t.TempDir(),
	}

	s := &Server{
		db:       db,
		config:   cfg,
		notifier: NewNotifier(cfg, logger),
		Logger:   logger,
	}
	s.zoho = NewZohoClient(cfg.Zoho, nil, logger)
	s.reminders = NewReminderScheduler(db, s.notifier, logger)
	return s
}

func seedUser(t *testing.T, s *Server, email, password, name, code, phone, role string) int64 {
	t.Helper()

	hashed, err := hashPassword(password)
	require.NoError(t, err)

	res, err := s.db.Exec(`INSERT INTO users (email, password, name, code, phone, role) VALUES (?, ?, ?, ?, ?, ?)`,
		email, hashed, name, code, phone, role)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// doRequest runs one request through the full router and returns the
// recorder plus the decoded JSON body.
func doRequest(t *testing.T, s *Server, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "unexpected status, body: %s", rec.Body.String())
}
