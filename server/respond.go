package server

import (
	"encoding/json"
	"net/http"

	"github.com/pupscribe/orderform/pkg"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError mirrors the {"detail": ...} error shape the frontend expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, pkg.ErrorResponse{Detail: detail})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
