package server

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

// gstStateCodes maps the two leading GSTIN digits to a state.
var gstStateCodes = map[string]string{
	"01": "Jammu and Kashmir", "02": "Himachal Pradesh", "03": "Punjab",
	"04": "Chandigarh", "05": "Uttarakhand", "06": "Haryana", "07": "Delhi",
	"08": "Rajasthan", "09": "Uttar Pradesh", "10": "Bihar", "11": "Sikkim",
	"12": "Arunachal Pradesh", "13": "Nagaland", "14": "Manipur",
	"15": "Mizoram", "16": "Tripura", "17": "Meghalaya", "18": "Assam",
	"19": "West Bengal", "20": "Jharkhand", "21": "Odisha",
	"22": "Chhattisgarh", "23": "Madhya Pradesh", "24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu", "27": "Maharashtra",
	"29": "Karnataka", "30": "Goa", "31": "Lakshadweep", "32": "Kerala",
	"33": "Tamil Nadu", "34": "Puducherry", "35": "Andaman and Nicobar Islands",
	"36": "Telangana", "37": "Andhra Pradesh", "38": "Ladakh",
}

var gstPattern = regexp.MustCompile(`^(\d{2})([A-Z]{5}\d{4}[A-Z])(\d)([A-Z])([0-9A-Z])$`)

// sharedSalesBuckets are customer assignments visible to every salesperson.
var sharedSalesBuckets = []string{"Defaulter", "Company customers"}

const customerColumns = `id, contact_id, contact_name, company_name, gst_number,
	gst_type, sales_person, status, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.ContactID, &c.ContactName, &c.CompanyName, &c.GSTNumber,
		&c.GSTType, &c.SalesPerson, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Server) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	role := q.Get("role")
	if role == "" {
		role = "salesperson"
	}
	userCode := q.Get("user_code")
	name := q.Get("name")
	sort := q.Get("sort")

	where := []string{"1=1"}
	args := []any{}
	if role == "salesperson" {
		where = append(where, "status = 'active'")
		if userCode != "" {
			// sales_person stores a comma-separated assignment list; shared
			// buckets stay visible to everyone.
			codes := append([]string{userCode}, sharedSalesBuckets...)
			conds := make([]string, 0, len(codes))
			for _, code := range codes {
				conds = append(conds, `(',' || sales_person || ',') LIKE ? ESCAPE '\'`)
				args = append(args, "%,"+escapeLike(code)+",%")
			}
			where = append(where, "("+strings.Join(conds, " OR ")+")")
		}
	}
	if name != "" {
		where = append(where, `(contact_name LIKE ? ESCAPE '\' COLLATE NOCASE OR company_name LIKE ? ESCAPE '\' COLLATE NOCASE)`)
		pattern := "%" + escapeLike(name) + "%"
		args = append(args, pattern, pattern)
	}

	order := "ORDER BY company_name ASC, contact_name ASC"
	if sort == "desc" {
		order = "ORDER BY company_name DESC, contact_name DESC"
	}

	rows, err := s.db.Query("SELECT "+customerColumns+" FROM customers WHERE "+
		strings.Join(where, " AND ")+" "+order, args...)
	if err != nil {
		s.Logger.Errorf("Failed to query customers: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch customers.")
		return
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch customers.")
			return
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		s.Logger.Errorf("Customer rows failed mid-scan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch customers.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (s *Server) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := scanCustomer(s.db.QueryRow("SELECT "+customerColumns+" FROM customers WHERE id = ?", id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch customer.")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

var updatableCustomerColumns = map[string]string{
	"contact_name":    "contact_name",
	"company_name":    "company_name",
	"gst_number":      "gst_number",
	"cf_in_ex":        "gst_type",
	"cf_sales_person": "sales_person",
	"status":          "status",
}

func (s *Server) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sets := []string{}
	args := []any{}
	for key, value := range body {
		column, ok := updatableCustomerColumns[key]
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
	res, err := s.db.Exec("UPDATE customers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update customer.")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Customer not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Customer updated"})
}

type gstRequest struct {
	GSTNumber string `json:"gst_number"`
}

// ValidateGSTHandler checks the GSTIN format and extracts the PAN and the
// registration state from the embedded state-code table.
func (s *Server) ValidateGSTHandler(w http.ResponseWriter, r *http.Request) {
	var req gstRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	gst := strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	match := gstPattern.FindStringSubmatch(gst)
	if match == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": "Invalid GST Number format",
		})
		return
	}

	stateCode := match[1]
	pan := match[2]
	state, ok := gstStateCodes[stateCode]
	if !ok {
		state = "Invalid State Code"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"gst_number": gst,
		"pan":        pan,
		"state_code": stateCode,
		"state":      state,
	})
}
