package stats

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/stravadash/internal/strava"
)

// DailyElevation buckets total elevation gain by local calendar day for
// activities whose type is in the allowed set. Activities with a malformed
// start date are skipped with a warning rather than failing the run.
func DailyElevation(activities []strava.Activity, activityTypes []string) map[time.Time]float64 {
	allowed := make(map[string]struct{}, len(activityTypes))
	for _, t := range activityTypes {
		allowed[t] = struct{}{}
	}

	daily := make(map[time.Time]float64)
	for _, a := range activities {
		if _, ok := allowed[a.Type]; !ok {
			continue
		}

		day, err := parseLocalDay(a.StartDateLocal)
		if err != nil {
			slog.Warn("Skipping activity with malformed start date",
				slog.Int64("activity_id", a.ID),
				slog.String("start_date_local", a.StartDateLocal))
			continue
		}

		daily[day] += a.TotalElevationGain
	}

	return daily
}

// parseLocalDay extracts the calendar day from a Strava local timestamp
// ("2006-01-02T15:04:05Z" shaped; only the date part matters).
func parseLocalDay(startDateLocal string) (time.Time, error) {
	if len(startDateLocal) > 10 {
		startDateLocal = startDateLocal[:10]
	}
	return time.ParseInLocation("2006-01-02", startDateLocal, time.UTC)
}

// Day normalizes a timestamp to its calendar day (midnight UTC key).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
