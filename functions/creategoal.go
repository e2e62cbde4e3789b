package functions

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

func init() {
	dispatch.Register("createGoal", createGoal)
}

type createGoalRequest struct {
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	TargetDate   string  `json:"target_date"`
	Icon         string  `json:"icon"`
}

// createGoal forges a new savings goal for the caller.
func createGoal(w http.ResponseWriter, r *http.Request, rt *dispatch.Runtime) {
	client := rt.ClientFromRequest(r)
	if _, err := client.Auth.Me(); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil ||
		request.Name == "" || request.TargetAmount == 0 {
		writeError(w, http.StatusBadRequest, "name and target_amount are required")
		return
	}

	icon := request.Icon
	if icon == "" {
		icon = "🗡️"
	}
	goal := sdk.Record{
		"name":           request.Name,
		"legendary_item": request.Name + " Lendário",
		"target_amount":  request.TargetAmount,
		"current_amount": 0,
		"status":         "forging",
		"icon":           icon,
	}
	if request.TargetDate != "" {
		goal["target_date"] = request.TargetDate
	}

	stored, err := client.Create(r.Context(), "Goal", goal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"goal":    stored,
	})
}
