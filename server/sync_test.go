package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandFromName(t *testing.T) {
	assert.Equal(t, "FOFOS", brandFromName("FOFOS Rope Toy"))
	assert.Equal(t, "Barkbutler", brandFromName("barkbutler Squeaky Bone"))
	assert.Equal(t, "Goofy", brandFromName("GOOFY Tails Treat"))
	assert.Equal(t, "", brandFromName(""))
}

func TestRunProductSyncWalksAllPages(t *testing.T) {
	s := newTestServer(t)

	accounts, _ := fakeZohoAccounts(t)
	inventory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		items := []map[string]any{
			{"item_id": "zi-" + page + "a", "name": "FOFOS Toy " + page, "status": "active", "stock_on_hand": 5.0},
			{"item_id": "zi-" + page + "b", "name": "Barkbutler Toy " + page, "status": "active", "stock_on_hand": 2.0},
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items":        items,
			"page_context": map[string]any{"has_more_page": page == "1"},
		})
	}))
	t.Cleanup(inventory.Close)

	s.config.Zoho.AccountsURL = accounts.URL
	s.config.Zoho.InventoryURL = inventory.URL
	s.config.Zoho.InventoryRefreshToken = "rt-inventory"
	s.config.Zoho.ClientID = "cid"
	s.config.Zoho.ClientSecret = "secret"
	s.zoho = NewZohoClient(s.config.Zoho, nil, s.Logger)

	report, err := s.RunProductSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 4, report.Inserted)
	assert.Equal(t, 0, report.Updated)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 4, count)

	// A second run only updates.
	report, err = s.RunProductSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 4, report.Updated)
}

func TestRunInvoiceSyncReportsToSlack(t *testing.T) {
	s := newTestServer(t)

	accounts, _ := fakeZohoAccounts(t)
	books := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"invoices": []map[string]any{
				{"invoice_id": "zb-1", "invoice_number": "INV-001", "status": "sent", "balance": 500.0},
			},
			"page_context": map[string]any{"has_more_page": false},
		})
	}))
	t.Cleanup(books.Close)

	var slackPosts []map[string]any
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		slackPosts = append(slackPosts, payload)
	}))
	t.Cleanup(slack.Close)

	s.config.Zoho.AccountsURL = accounts.URL
	s.config.Zoho.BooksURL = books.URL
	s.config.Zoho.BooksRefreshToken = "rt-books"
	s.config.Zoho.ClientID = "cid"
	s.config.Zoho.ClientSecret = "secret"
	s.zoho = NewZohoClient(s.config.Zoho, nil, s.Logger)
	s.notifier.SlackWebhookURL = slack.URL

	report, err := s.RunInvoiceSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	require.Len(t, slackPosts, 1)
	blocks := slackPosts[0]["blocks"].([]any)
	require.NotEmpty(t, blocks)
	header := blocks[0].(map[string]any)["text"].(map[string]any)["text"].(string)
	assert.Contains(t, header, "Invoice Sync")
	assert.Contains(t, header, "SUCCESS")
}

func TestSyncHandlersKickOffInBackground(t *testing.T) {
	s := newTestServer(t)

	accounts, _ := fakeZohoAccounts(t)
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [], "invoices": [], "page_context": {"has_more_page": false}}`)
	}))
	t.Cleanup(empty.Close)

	s.config.Zoho.AccountsURL = accounts.URL
	s.config.Zoho.InventoryURL = empty.URL
	s.config.Zoho.BooksURL = empty.URL
	s.config.Zoho.InventoryRefreshToken = "rt-inventory"
	s.config.Zoho.BooksRefreshToken = "rt-books"
	s.zoho = NewZohoClient(s.config.Zoho, nil, s.Logger)

	rec, body := doRequest(t, s, http.MethodPost, "/api/zoho/sync/products", nil, "")
	requireStatus(t, rec, http.StatusAccepted)
	assert.Equal(t, "Product sync started", body["message"])

	rec, body = doRequest(t, s, http.MethodPost, "/api/zoho/sync/invoices", nil, "")
	requireStatus(t, rec, http.StatusAccepted)
	assert.Equal(t, "Invoice sync started", body["message"])
}
