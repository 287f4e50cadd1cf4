package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productSeed struct {
	itemID    string
	name      string
	brand     string
	sku       string
	status    string
	stock     int64
	createdAt time.Time
}

func seedProduct(t *testing.T, s *Server, p productSeed) {
	t.Helper()
	if p.status == "" {
		p.status = "active"
	}
	if p.createdAt.IsZero() {
		p.createdAt = time.Now().AddDate(-1, 0, 0)
	}
	_, err := s.db.Exec(`INSERT INTO products (item_id, name, brand, sku, status, stock, rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 100, ?, ?)`,
		p.itemID, p.name, p.brand, p.sku, p.status, p.stock, p.createdAt.UTC(), p.createdAt.UTC())
	require.NoError(t, err)
}

func TestListProductsFiltersAndPagination(t *testing.T) {
	s := newTestServer(t)

	seedProduct(t, s, productSeed{itemID: "1", name: "FOFOS Rope Toy", brand: "FOFOS", sku: "FF-01", stock: 10})
	seedProduct(t, s, productSeed{itemID: "2", name: "Barkbutler Ball", brand: "Barkbutler", sku: "BB-01", stock: 5})
	seedProduct(t, s, productSeed{itemID: "3", name: "Barkbutler Bone", brand: "Barkbutler", sku: "BB-02", stock: 0})
	seedProduct(t, s, productSeed{itemID: "4", name: "Hidden Chew", brand: "Barkbutler", sku: "BB-03", stock: 3, status: "inactive"})

	// Out-of-stock and inactive products are invisible to salespeople.
	rec, body := doRequest(t, s, http.MethodGet, "/api/products?role=salesperson", nil, "")
	requireStatus(t, rec, http.StatusOK)
	products := body["products"].([]any)
	assert.Len(t, products, 2)

	// Admins see inactive products too.
	rec, body = doRequest(t, s, http.MethodGet, "/api/products?role=admin", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 3)

	// Brand filter.
	rec, body = doRequest(t, s, http.MethodGet, "/api/products?brand=FOFOS", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 1)

	// Search matches name or SKU, case-insensitively.
	rec, body = doRequest(t, s, http.MethodGet, "/api/products?search=bb-01", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 1)

	// LIKE metacharacters in the search term are literals, not wildcards.
	rec, body = doRequest(t, s, http.MethodGet, "/api/products?search=%25", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 0)

	// Page beyond the end is a client error.
	rec, _ = doRequest(t, s, http.MethodGet, "/api/products?page=99", nil, "")
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestListProductsMarksRecentProductsNewAndFirst(t *testing.T) {
	s := newTestServer(t)

	seedProduct(t, s, productSeed{itemID: "1", name: "Old Toy", brand: "FOFOS", stock: 10,
		createdAt: time.Now().AddDate(0, -6, 0)})
	seedProduct(t, s, productSeed{itemID: "2", name: "Fresh Toy", brand: "FOFOS", stock: 10,
		createdAt: time.Now().AddDate(0, 0, -7)})

	rec, body := doRequest(t, s, http.MethodGet, "/api/products", nil, "")
	requireStatus(t, rec, http.StatusOK)

	products := body["products"].([]any)
	require.Len(t, products, 2)

	first := products[0].(map[string]any)
	second := products[1].(map[string]any)
	assert.Equal(t, "Fresh Toy", first["name"])
	assert.Equal(t, true, first["new"])
	assert.Equal(t, "Old Toy", second["name"])
	assert.Equal(t, false, second["new"])
}

func TestListProductsSuggestsOnEmptySearch(t *testing.T) {
	s := newTestServer(t)
	seedProduct(t, s, productSeed{itemID: "1", name: "Barkbutler Ball", brand: "Barkbutler", stock: 5})

	rec, body := doRequest(t, s, http.MethodGet, "/api/products?search=bsll", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 0)
	assert.Equal(t, "Barkbutler Ball", body["did_you_mean"])

	// Nothing near enough: no suggestion offered.
	rec, body = doRequest(t, s, http.MethodGet, "/api/products?search=zzzzzzzzzz", nil, "")
	requireStatus(t, rec, http.StatusOK)
	_, present := body["did_you_mean"]
	assert.False(t, present)
}

func TestBrandsListsDistinctInStockBrands(t *testing.T) {
	s := newTestServer(t)
	seedProduct(t, s, productSeed{itemID: "1", name: "A", brand: "FOFOS", stock: 1})
	seedProduct(t, s, productSeed{itemID: "2", name: "B", brand: "FOFOS", stock: 2})
	seedProduct(t, s, productSeed{itemID: "3", name: "C", brand: "Barkbutler", stock: 0})
	seedProduct(t, s, productSeed{itemID: "4", name: "D", brand: "", stock: 5})

	rec, body := doRequest(t, s, http.MethodGet, "/api/products/brands", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, []any{"FOFOS"}, body["brands"])
}

func TestUpdateAndSoftDeleteProduct(t *testing.T) {
	s := newTestServer(t)
	seedProduct(t, s, productSeed{itemID: "1", name: "Barkbutler Ball", brand: "Barkbutler", stock: 5})

	var id int64
	require.NoError(t, s.db.QueryRow(`SELECT id FROM products WHERE item_id = '1'`).Scan(&id))

	rec, _ := doRequest(t, s, http.MethodPut, "/api/products/"+strconv64(id), map[string]any{
		"rate": 250, "_id": "ignored",
	}, "")
	requireStatus(t, rec, http.StatusOK)

	var rate float64
	require.NoError(t, s.db.QueryRow(`SELECT rate FROM products WHERE id = ?`, id).Scan(&rate))
	assert.Equal(t, 250.0, rate)

	// Empty update payload is rejected.
	rec, _ = doRequest(t, s, http.MethodPut, "/api/products/"+strconv64(id), map[string]any{}, "")
	requireStatus(t, rec, http.StatusBadRequest)

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/products/"+strconv64(id), nil, "")
	requireStatus(t, rec, http.StatusOK)

	// Soft-deleted products vanish from listings but keep their row.
	rec, body := doRequest(t, s, http.MethodGet, "/api/products", nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["products"].([]any), 0)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 1, count)

	// Deleting twice is a 404.
	rec, _ = doRequest(t, s, http.MethodDelete, "/api/products/"+strconv64(id), nil, "")
	requireStatus(t, rec, http.StatusNotFound)
}
