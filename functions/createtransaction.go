package functions

import (
	"math"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

func init() {
	dispatch.Register("createTransaction", createTransaction)
}

type createTransactionRequest struct {
	Date             string  `json:"date"`
	Value            float64 `json:"value"`
	Description      string  `json:"description"`
	Type             string  `json:"type"`
	Category         string  `json:"category"`
	AccountID        string  `json:"account_id"`
	BudgetCategoryID string  `json:"budget_category_id"`
}

// createTransaction records a transaction and rolls its value into the
// linked budget category and account balance.
func createTransaction(w http.ResponseWriter, r *http.Request, rt *dispatch.Runtime) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)
	client := rt.ClientFromRequest(r)
	if _, err := client.Auth.Me(); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil ||
		request.Date == "" || request.Value == 0 || request.Description == "" {
		writeError(w, http.StatusBadRequest, "date, value and description are required")
		return
	}
	if request.Type != "income" && request.Type != "expense" {
		writeError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}

	value := math.Abs(request.Value)
	if request.Type == "expense" {
		value = -value
	}
	category := request.Category
	if category == "" {
		category = "Sem Categoria"
	}
	transaction := sdk.Record{
		"date":        request.Date,
		"value":       value,
		"description": request.Description,
		"type":        request.Type,
		"category":    category,
	}
	if request.AccountID != "" {
		transaction["account_id"] = request.AccountID
	}
	if request.BudgetCategoryID != "" {
		transaction["budget_category_id"] = request.BudgetCategoryID
	}

	stored, err := client.Create(ctx, "FinTransaction", transaction)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// the side effects below are best effort, the transaction itself is
	// already stored
	if request.BudgetCategoryID != "" && request.Type == "expense" {
		if err := addBudgetExpense(r, client, request, stored); err != nil {
			rlog.WithError(err).Warnln("budget category update failed")
		}
	}
	if request.AccountID != "" {
		if err := updateAccountBalance(r, client, request.AccountID, value, request.Date); err != nil {
			rlog.WithError(err).Warnln("account update failed")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"transaction": stored,
	})
}

// addBudgetExpense prepends the expense to the budget category's expense
// list.
func addBudgetExpense(r *http.Request, client *sdk.Client, request createTransactionRequest, stored sdk.Record) error {
	ctx := r.Context()
	categories, err := client.Filter(ctx, "BudgetCategory", sdk.Record{"id": request.BudgetCategoryID})
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return sdk.ErrNotFound
	}
	existing, _ := categories[0]["expenses"].([]interface{})
	entry := map[string]interface{}{
		"id":          stored["id"],
		"description": request.Description,
		"value":       math.Abs(request.Value),
		"date":        request.Date,
	}
	expenses := append([]interface{}{entry}, existing...)
	_, err = client.Update(ctx, "BudgetCategory", categories[0]["id"], sdk.Record{"expenses": expenses})
	return err
}

// updateAccountBalance applies the signed value to the account balance.
func updateAccountBalance(r *http.Request, client *sdk.Client, accountID string, value float64, date string) error {
	ctx := r.Context()
	accounts, err := client.Filter(ctx, "Account", sdk.Record{"id": accountID})
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return sdk.ErrNotFound
	}
	balance := numericValue(accounts[0]["balance"]) + value
	_, err = client.Update(ctx, "Account", accounts[0]["id"], sdk.Record{
		"balance":               balance,
		"last_transaction_date": date,
	})
	return err
}
