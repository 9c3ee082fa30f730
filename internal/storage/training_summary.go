package storage

import (
	"context"
	"fmt"
	"time"
)

// TrainingSummaryPeriod holds aggregated session stats for one time period.
type TrainingSummaryPeriod struct {
	Period         string            `json:"period"`
	Sessions       int               `json:"sessions"`
	DurationSec    int               `json:"duration_sec"`
	AvgDurationSec float64           `json:"avg_duration_sec"`
	CompletedSets  int               `json:"completed_sets"`
	TotalSets      int               `json:"total_sets"`
	CompletionRate float64           `json:"completion_rate"`
	Workouts       []WorkoutNameStat `json:"workouts"`
}

// GetTrainingSummary returns session volume and set completion per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	// Query 1: totals per period
	periodRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, l.completed_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(l.duration_sec), 0)::int,
		        COALESCE(SUM(s.completed), 0)::int,
		        COALESCE(SUM(s.total), 0)::int
		 FROM workout_logs l
		 LEFT JOIN (
		     SELECT session_id, SUM(completed_sets) AS completed, SUM(target_sets) AS total
		     FROM workout_log_exercises
		     GROUP BY session_id
		 ) s ON s.session_id = l.session_id
		 WHERE l.completed_at >= $2 AND l.completed_at < $3 AND l.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying training summary: %w", err)
	}
	defer periodRows.Close()

	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for periodRows.Next() {
		var periodTime time.Time
		var p TrainingSummaryPeriod
		if err := periodRows.Scan(&periodTime, &p.Sessions, &p.DurationSec, &p.CompletedSets, &p.TotalSets); err != nil {
			return nil, fmt.Errorf("scanning training summary: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		if p.Sessions > 0 {
			p.AvgDurationSec = float64(p.DurationSec) / float64(p.Sessions)
		}
		p.CompletionRate = completionRate(p.CompletedSets, p.TotalSets)
		periodMap[p.Period] = &p
		periodOrder = append(periodOrder, p.Period)
	}
	if err := periodRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: per-workout breakdown
	nameRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, completed_at)::date AS period,
		        workout_name,
		        COUNT(*),
		        COALESCE(SUM(duration_sec), 0)
		 FROM workout_logs
		 WHERE completed_at >= $2 AND completed_at < $3 AND user_id = $4
		 GROUP BY period, workout_name
		 ORDER BY period DESC, COUNT(*) DESC, workout_name`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout breakdown: %w", err)
	}
	defer nameRows.Close()

	for nameRows.Next() {
		var periodTime time.Time
		var ws WorkoutNameStat
		if err := nameRows.Scan(&periodTime, &ws.Name, &ws.Count, &ws.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning workout breakdown: %w", err)
		}
		if p, ok := periodMap[periodTime.Format("2006-01-02")]; ok {
			p.Workouts = append(p.Workouts, ws)
		}
	}
	if err := nameRows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week":
		return "week"
	default:
		return "month"
	}
}
