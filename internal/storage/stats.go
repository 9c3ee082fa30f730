package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's workout logs.
type DataStats struct {
	TotalWorkouts    int64             `json:"total_workouts"`
	TotalDurationSec int64             `json:"total_duration_sec"`
	CompletedSets    int64             `json:"completed_sets"`
	TotalSets        int64             `json:"total_sets"`
	FirstWorkout     *time.Time        `json:"first_workout"`
	LastWorkout      *time.Time        `json:"last_workout"`
	CurrentStreak    int               `json:"current_streak_days"`
	LongestStreak    int               `json:"longest_streak_days"`
	WorkoutsByName   []WorkoutNameStat `json:"workouts_by_name"`
}

// WorkoutNameStat holds summary stats for a single workout name.
type WorkoutNameStat struct {
	Name          string `json:"name"`
	Count         int64  `json:"count"`
	TotalDuration int64  `json:"total_duration_sec"`
}

// GetDataStats returns aggregate statistics for a user's stored logs. now
// anchors the current streak.
func (db *DB) GetDataStats(ctx context.Context, userID int, now time.Time) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_sec), 0), MIN(completed_at), MAX(completed_at)
		 FROM workout_logs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalDurationSec, &stats.FirstWorkout, &stats.LastWorkout)
	if err != nil {
		return nil, fmt.Errorf("counting workout logs: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(e.completed_sets), 0), COALESCE(SUM(e.target_sets), 0)
		 FROM workout_log_exercises e
		 JOIN workout_logs l ON l.session_id = e.session_id
		 WHERE l.user_id = $1`, userID,
	).Scan(&stats.CompletedSets, &stats.TotalSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	// Training days
	dayRows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT (completed_at AT TIME ZONE 'UTC')::date AS day
		 FROM workout_logs WHERE user_id = $1
		 ORDER BY day`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying training days: %w", err)
	}
	defer dayRows.Close()

	var days []time.Time
	for dayRows.Next() {
		var d time.Time
		if err := dayRows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning training day: %w", err)
		}
		days = append(days, d)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}
	stats.CurrentStreak, stats.LongestStreak = streaks(days, now)

	// Workouts by name
	rows, err := db.Pool.Query(ctx,
		`SELECT workout_name, COUNT(*), COALESCE(SUM(duration_sec), 0)
		 FROM workout_logs
		 WHERE user_id = $1
		 GROUP BY workout_name
		 ORDER BY COUNT(*) DESC, workout_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s WorkoutNameStat
		if err := rows.Scan(&s.Name, &s.Count, &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning workout name stat: %w", err)
		}
		stats.WorkoutsByName = append(stats.WorkoutsByName, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// streaks computes the current and longest runs of consecutive training days.
// days must be sorted ascending. The current streak is still alive when the
// last training day is today or yesterday.
func streaks(days []time.Time, now time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	run := 0
	var prev time.Time
	for i, d := range days {
		d = civilDay(d)
		switch {
		case i == 0:
			run = 1
		case d.Equal(prev):
			continue
		case d.Equal(prev.AddDate(0, 0, 1)):
			run++
		default:
			run = 1
		}
		prev = d
		if run > longest {
			longest = run
		}
	}

	today := civilDay(now)
	if prev.Equal(today) || prev.Equal(today.AddDate(0, 0, -1)) {
		current = run
	}
	return current, longest
}

func civilDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
