package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrderWithItems(t *testing.T, s *Server, userID, customerID int64) int64 {
	t.Helper()

	res, err := s.db.Exec(`INSERT INTO orders (created_by, customer_id, customer_name, status, total_amount)
		VALUES (?, ?, 'Happy Tails', 'draft', 450)`, userID, customerID)
	require.NoError(t, err)
	orderID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = s.db.Exec(`INSERT INTO order_items (order_id, product_id, name, quantity, price)
		VALUES (?, 1, 'Barkbutler Ball', 2, 150), (?, 2, 'FOFOS Rope Toy', 1, 150)`, orderID, orderID)
	require.NoError(t, err)
	return orderID
}

func TestCreateEstimate(t *testing.T) {
	s := newTestServer(t)
	userID := seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")
	customerID := seedCustomer(t, s, "Asha", "Happy Tails", "RO", "")
	orderID := seedOrderWithItems(t, s, userID, customerID)

	accounts, _ := fakeZohoAccounts(t)
	var statusCalls []string
	books := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/status/") {
			parts := strings.Split(r.URL.Path, "/")
			statusCalls = append(statusCalls, parts[len(parts)-1])
			w.Write([]byte(`{}`))
			return
		}

		var payload EstimatePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Happy Tails", payload.CustomerName)
		assert.Equal(t, "order-"+strconv64(orderID), payload.ReferenceNum)
		assert.Len(t, payload.LineItems, 2)

		json.NewEncoder(w).Encode(map[string]any{"estimate": map[string]any{
			"estimate_id":     "est-1",
			"estimate_number": "EST-001",
			"estimate_url":    "https://books.zoho.in/est-1",
		}})
	}))
	t.Cleanup(books.Close)

	s.config.Zoho.AccountsURL = accounts.URL
	s.config.Zoho.BooksURL = books.URL
	s.config.Zoho.BooksRefreshToken = "rt-books"
	s.zoho = NewZohoClient(s.config.Zoho, nil, s.Logger)

	rec, body := doRequest(t, s, http.MethodPost, "/api/orders/"+strconv64(orderID)+"/estimate",
		map[string]string{"status": "accepted"}, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "est-1", body["estimate_id"])
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, []string{"sent", "accepted"}, statusCalls)

	var status, estimateID string
	var estimateCreated bool
	require.NoError(t, s.db.QueryRow(`SELECT status, estimate_id, estimate_created FROM orders WHERE id = ?`,
		orderID).Scan(&status, &estimateID, &estimateCreated))
	assert.Equal(t, "accepted", status)
	assert.Equal(t, "est-1", estimateID)
	assert.True(t, estimateCreated)
}

func TestCreateEstimateReusesExistingEstimate(t *testing.T) {
	s := newTestServer(t)
	userID := seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")
	customerID := seedCustomer(t, s, "Asha", "Happy Tails", "RO", "")
	orderID := seedOrderWithItems(t, s, userID, customerID)

	accounts, _ := fakeZohoAccounts(t)
	var creates, updates int
	books := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/estimates":
			creates++
		case r.Method == http.MethodPut && r.URL.Path == "/estimates/est-1":
			updates++
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"estimate": map[string]any{
			"estimate_id":     "est-1",
			"estimate_number": "EST-001",
			"estimate_url":    "https://books.zoho.in/est-1",
		}})
	}))
	t.Cleanup(books.Close)

	s.config.Zoho.AccountsURL = accounts.URL
	s.config.Zoho.BooksURL = books.URL
	s.config.Zoho.BooksRefreshToken = "rt-books"
	s.zoho = NewZohoClient(s.config.Zoho, nil, s.Logger)

	rec, body := doRequest(t, s, http.MethodPost, "/api/orders/"+strconv64(orderID)+"/estimate", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Estimate created", body["message"])

	// Second submission updates est-1 instead of minting a new estimate.
	rec, body = doRequest(t, s, http.MethodPost, "/api/orders/"+strconv64(orderID)+"/estimate", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Estimate updated", body["message"])
	assert.Equal(t, "est-1", body["estimate_id"])

	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
}

func TestCreateEstimateRequiresCustomerAndItems(t *testing.T) {
	s := newTestServer(t)
	userID := seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")

	res, err := s.db.Exec(`INSERT INTO orders (created_by, status) VALUES (?, 'draft')`, userID)
	require.NoError(t, err)
	bare, _ := res.LastInsertId()

	rec, body := doRequest(t, s, http.MethodPost, "/api/orders/"+strconv64(bare)+"/estimate", nil, "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Order has no customer attached", body["detail"])

	customerID := seedCustomer(t, s, "Asha", "Happy Tails", "RO", "")
	_, err = s.db.Exec(`UPDATE orders SET customer_id = ?, customer_name = 'Happy Tails' WHERE id = ?`,
		customerID, bare)
	require.NoError(t, err)

	rec, body = doRequest(t, s, http.MethodPost, "/api/orders/"+strconv64(bare)+"/estimate", nil, "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Order has no products", body["detail"])

	rec, _ = doRequest(t, s, http.MethodPost, "/api/orders/9999/estimate", nil, "")
	requireStatus(t, rec, http.StatusNotFound)
}
