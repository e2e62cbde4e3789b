package functions

import (
	"net/http"

	"github.com/marcossouzacontrole-cpu/finquest/core/dispatch"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

func init() {
	dispatch.Register("getGoalsStatus", getGoalsStatus)
}

// getGoalsStatus reports the caller's goals split into forging and
// completed, with progress numbers per goal.
func getGoalsStatus(w http.ResponseWriter, r *http.Request, rt *dispatch.Runtime) {
	ctx := r.Context()
	client := rt.ClientFromRequest(r)
	if _, err := client.Auth.Me(); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goals, err := client.List(ctx, "Goal")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	forging := []sdk.Record{}
	completed := []sdk.Record{}
	var totalTarget, totalSaved float64
	for _, goal := range goals {
		target := numericValue(goal["target_amount"])
		current := numericValue(goal["current_amount"])
		totalTarget += target
		totalSaved += current

		progress := 0.0
		if target > 0 {
			progress = current / target * 100
			if progress > 100 {
				progress = 100
			}
		}
		goal["progress"] = progress
		goal["remaining"] = target - current

		if status, _ := goal["status"].(string); status == "completed" || (target > 0 && current >= target) {
			completed = append(completed, goal)
		} else {
			forging = append(forging, goal)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"forging":      forging,
		"completed":    completed,
		"total_target": totalTarget,
		"total_saved":  totalSaved,
	})
}
