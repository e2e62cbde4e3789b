package functions

import (
	"math"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

func init() {
	dispatch.Register("searchTransactions", searchTransactions)
}

type searchTransactionsRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	Limit      int    `json:"limit"`
}

// searchTransactions finds the caller's transactions by value, category
// or free text. The owner scope comes from the client, the match runs in
// memory over the owned rows.
func searchTransactions(w http.ResponseWriter, r *http.Request, rt *dispatch.Runtime) {
	ctx := r.Context()
	client := rt.ClientFromRequest(r)
	if _, err := client.Auth.Me(); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request searchTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := request.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions, err := client.List(ctx, "FinTransaction")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := strings.ToLower(request.Query)
	results := []sdk.Record{}
	for _, transaction := range transactions {
		if len(results) >= limit {
			break
		}
		if matchesTransaction(transaction, query, request.SearchType) {
			results = append(results, sdk.Record{
				"id":          transaction["id"],
				"date":        transaction["date"],
				"value":       numericValue(transaction["value"]),
				"description": transaction["description"],
				"category":    transaction["category"],
				"type":        transaction["type"],
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

func matchesTransaction(transaction sdk.Record, query, searchType string) bool {
	description, _ := transaction["description"].(string)
	category, _ := transaction["category"].(string)
	switch searchType {
	case "value":
		wanted := numericValue(query)
		return math.Abs(math.Abs(numericValue(transaction["value"]))-math.Abs(wanted)) < 0.01
	case "category":
		return strings.Contains(strings.ToLower(category), query)
	default:
		return strings.Contains(strings.ToLower(description), query) ||
			strings.Contains(strings.ToLower(category), query)
	}
}
