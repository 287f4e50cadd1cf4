package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTrainingsReturnsActiveNewestFirst(t *testing.T) {
	s := newTestServer(t)

	_, err := s.db.Exec(`INSERT INTO trainings (title, video_url, is_active, created_at) VALUES
		('Pitching the premium range', 'https://videos.example/premium', 1, '2026-08-01 10:00:00'),
		('Handling objections', 'https://videos.example/objections', 1, '2026-08-10 10:00:00'),
		('Retired module', '', 0, '2026-08-15 10:00:00')`)
	require.NoError(t, err)

	rec, body := doRequest(t, s, http.MethodGet, "/api/trainings", nil, "")
	requireStatus(t, rec, http.StatusOK)

	trainings := body["trainings"].([]any)
	require.Len(t, trainings, 2)
	assert.Equal(t, "Handling objections", trainings[0].(map[string]any)["title"])
	assert.Equal(t, "Pitching the premium range", trainings[1].(map[string]any)["title"])
}

func TestListAnnouncementsAndCatalogues(t *testing.T) {
	s := newTestServer(t)

	_, err := s.db.Exec(`INSERT INTO announcements (title, body) VALUES ('Diwali scheme live', 'Extra 5% on FOFOS')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO catalogues (name, url, brand) VALUES ('FOFOS 2026', 'https://cdn.example/fofos.pdf', 'FOFOS')`)
	require.NoError(t, err)

	rec, body := doRequest(t, s, http.MethodGet, "/api/announcements", nil, "")
	requireStatus(t, rec, http.StatusOK)
	announcements := body["announcements"].([]any)
	require.Len(t, announcements, 1)
	assert.Equal(t, "Diwali scheme live", announcements[0].(map[string]any)["title"])

	rec, body = doRequest(t, s, http.MethodGet, "/api/catalogues", nil, "")
	requireStatus(t, rec, http.StatusOK)
	catalogues := body["catalogues"].([]any)
	require.Len(t, catalogues, 1)
	assert.Equal(t, "FOFOS 2026", catalogues[0].(map[string]any)["name"])
}
