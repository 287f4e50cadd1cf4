package server

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

// newProductWindow is how recently a product must have been created to be
// surfaced as "new" and sorted to the front of listings.
const newProductWindow = 3

func scanProduct(row interface{ Scan(...any) error }) (models.Product, error) {
	var p models.Product
	var deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.ItemID, &p.Name, &p.Brand, &p.SKU, &p.Status, &p.Rate,
		&p.PurchaseRate, &p.Stock, &p.TaxPercentage, &p.HSNOrSAC, &p.ImageURL,
		&p.IsComboProduct, &p.CreatedAt, &p.UpdatedAt, &deletedAt)
	return p, err
}

const productColumns = `id, item_id, name, brand, sku, status, rate, purchase_rate,
	stock, tax_percentage, hsn_or_sac, image_url, is_combo_product, created_at, updated_at, deleted_at`

func (s *Server) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	role := q.Get("role")
	if role == "" {
		role = "salesperson"
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	brand := q.Get("brand")
	search := q.Get("search")

	where := []string{"stock > 0", "deleted_at IS NULL"}
	args := []any{}
	if brand != "" {
		where = append(where, "brand = ?")
		args = append(args, brand)
	}
	if search != "" {
		where = append(where, `(name LIKE ? ESCAPE '\' COLLATE NOCASE OR sku LIKE ? ESCAPE '\' COLLATE NOCASE)`)
		pattern := "%" + escapeLike(search) + "%"
		args = append(args, pattern, pattern)
	}
	if role == "salesperson" {
		where = append(where, "status = 'active'")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM products WHERE "+clause, args...).Scan(&total); err != nil {
		s.Logger.Errorf("Failed to count products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products.")
		return
	}

	totalPages := (total + perPage - 1) / perPage
	if page > totalPages && totalPages != 0 {
		writeError(w, http.StatusBadRequest, "Page number out of range")
		return
	}

	// UTC, to line up with the CURRENT_TIMESTAMP strings sqlite stores.
	cutoff := time.Now().UTC().AddDate(0, -newProductWindow, 0)

	// Recently created products sort first, then newest within each group.
	query := "SELECT " + productColumns + " FROM products WHERE " + clause +
		" ORDER BY (created_at >= ?) DESC, created_at DESC LIMIT ? OFFSET ?"
	rows, err := s.db.Query(query, append(args, cutoff, perPage, (page-1)*perPage)...)
	if err != nil {
		s.Logger.Errorf("Failed to query products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products.")
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			s.Logger.Errorf("Failed to scan product: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch products.")
			return
		}
		p.New = p.CreatedAt.After(cutoff)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		s.Logger.Errorf("Product rows failed mid-scan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products.")
		return
	}

	resp := map[string]any{
		"products":    products,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": totalPages,
		"brand":       brand,
		"search":      search,
	}

	if search != "" && len(products) == 0 {
		if suggestion := s.suggestProduct(search); suggestion != "" {
			resp["did_you_mean"] = suggestion
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// suggestProduct returns the closest product name to the failed search term,
// or "" when nothing is near enough to be a plausible typo.
func (s *Server) suggestProduct(search string) string {
	rows, err := s.db.Query(`SELECT name FROM products WHERE deleted_at IS NULL AND stock > 0`)
	if err != nil {
		return ""
	}
	defer rows.Close()

	needle := strings.ToLower(search)
	best := ""
	bestDistance := len(needle)/2 + 1
	for rows.Next() {
		var name string
		if rows.Scan(&name) != nil {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(name)) {
			if d := levenshtein.ComputeDistance(needle, word); d < bestDistance {
				bestDistance = d
				best = name
			}
		}
	}
	if rows.Err() != nil {
		return ""
	}
	return best
}

func (s *Server) ListBrandsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT DISTINCT brand FROM products
		WHERE stock > 0 AND deleted_at IS NULL AND brand != '' ORDER BY brand`)
	if err != nil {
		s.Logger.Errorf("Failed to query brands: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch brands.")
		return
	}
	defer rows.Close()

	brands := []string{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch brands.")
			return
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		s.Logger.Errorf("Brand rows failed mid-scan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch brands.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func (s *Server) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := scanProduct(s.db.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Product Not Found")
		return
	}
	if err != nil {
		s.Logger.Errorf("Failed to query product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product.")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// updatableProductColumns whitelists fields a PUT may touch.
var updatableProductColumns = map[string]string{
	"name":           "name",
	"brand":          "brand",
	"cf_sku_code":    "sku",
	"status":         "status",
	"rate":           "rate",
	"purchase_rate":  "purchase_rate",
	"stock":          "stock",
	"tax_percentage": "tax_percentage",
	"hsn_or_sac":     "hsn_or_sac",
	"image_url":      "image_url",
}

func (s *Server) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sets := []string{}
	args := []any{}
	for key, value := range body {
		column, ok := updatableProductColumns[key]
		if !ok || value == nil {
			continue
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		writeError(w, http.StatusBadRequest, "No valid fields provided for update")
		return
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	res, err := s.db.Exec("UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		s.Logger.Errorf("Failed to update product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update product.")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (s *Server) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.db.Exec(`UPDATE products SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		s.Logger.Errorf("Failed to delete product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product.")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}
