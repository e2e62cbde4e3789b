package functions

import (
	"context"
	"time"

	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

// SyncTransactions materializes due scheduled transactions for all
// users. It runs under the job scheduler with a service role client and
// stamps each created transaction with the schedule's owner.
func SyncTransactions(ctx context.Context, client *sdk.Client) error {
	rlog := logger.FromContext(ctx)
	schedules, err := client.List(ctx, "ScheduledTransaction")
	if err != nil {
		return err
	}

	now := time.Now()
	for _, schedule := range schedules {
		if active, ok := schedule["active"].(bool); ok && !active {
			continue
		}
		nextDate, ok := scheduleTime(schedule["next_date"])
		if !ok || nextDate.After(now) {
			continue
		}

		transaction := sdk.Record{
			"created_by":               schedule["created_by"],
			"date":                     nextDate.Format("2006-01-02"),
			"value":                    numericValue(schedule["value"]),
			"description":              schedule["description"],
			"type":                     schedule["type"],
			"category":                 schedule["category"],
			"scheduled_transaction_id": schedule["id"],
		}
		if _, err := client.Create(ctx, "FinTransaction", transaction); err != nil {
			rlog.WithError(err).Errorln("scheduled transaction failed:", schedule["id"])
			continue
		}

		frequency, _ := schedule["frequency"].(string)
		if _, err := client.Update(ctx, "ScheduledTransaction", schedule["id"], sdk.Record{
			"next_date": advance(nextDate, frequency).Format("2006-01-02"),
		}); err != nil {
			rlog.WithError(err).Errorln("schedule advance failed:", schedule["id"])
		}
	}
	return nil
}

func advance(date time.Time, frequency string) time.Time {
	switch frequency {
	case "daily":
		return date.AddDate(0, 0, 1)
	case "weekly":
		return date.AddDate(0, 0, 7)
	default:
		return date.AddDate(0, 1, 0)
	}
}

// scheduleTime reads a date out of a record, both as time.Time from the
// driver and as a date string.
func scheduleTime(v interface{}) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, value); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
