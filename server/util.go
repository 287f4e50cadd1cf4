package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pupscribe/orderform/models"
)

func strconv64(id int64) string {
	return strconv.FormatInt(id, 10)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE metacharacters in user input; pair with
// ESCAPE '\' in the query.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// toFloat coerces the number shapes encoding/json produces for untyped
// payloads.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func decodeOrderItems(raw any) ([]models.OrderItem, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var items []models.OrderItem
	if err := json.Unmarshal(buf, &items); err != nil {
		return nil, err
	}
	return items, nil
}
