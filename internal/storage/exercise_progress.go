package storage

import (
	"context"
	"fmt"
	"time"
)

// ExerciseSummary holds aggregated work-section stats for one exercise.
type ExerciseSummary struct {
	Name           string  `json:"name"`
	Sessions       int     `json:"sessions"`
	CompletedSets  int     `json:"completed_sets"`
	TotalSets      int     `json:"total_sets"`
	Reps           int     `json:"reps"`
	TonnageKg      float64 `json:"tonnage_kg"`
	MaxWeight      float64 `json:"max_weight_kg"`
	CompletionRate float64 `json:"completion_rate"`
}

// ExerciseProgression holds one session's result for a filtered exercise.
type ExerciseProgression struct {
	Date           string  `json:"date"`
	WorkoutName    string  `json:"workout_name"`
	Weight         float64 `json:"weight_kg"`
	CompletedSets  int     `json:"completed_sets"`
	TargetSets     int     `json:"target_sets"`
	TargetReps     int     `json:"target_reps"`
	TonnageKg      float64 `json:"tonnage_kg"`
	FullyCompleted bool    `json:"fully_completed"`
}

// ExerciseProgress is the per-exercise view of a user's logged work.
type ExerciseProgress struct {
	Exercises   []ExerciseSummary     `json:"exercises"`
	Progression []ExerciseProgression `json:"progression,omitempty"`
}

// GetExerciseProgress returns work-section totals per exercise and, when
// exerciseFilter is set, the session-by-session history of matching
// exercises. Reps are counted as completed sets times target reps. Warmup
// and cooldown entries are excluded.
func (db *DB) GetExerciseProgress(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*ExerciseProgress, error) {
	result := &ExerciseProgress{Exercises: []ExerciseSummary{}}

	// Query 1: per-exercise totals
	exRows, err := db.Pool.Query(ctx,
		`SELECT e.name,
		        COUNT(DISTINCT e.session_id)::int,
		        COALESCE(SUM(e.completed_sets), 0)::int,
		        COALESCE(SUM(e.target_sets), 0)::int,
		        COALESCE(SUM(e.completed_sets * e.target_reps), 0)::int,
		        COALESCE(SUM(e.weight_used * e.completed_sets * e.target_reps), 0),
		        COALESCE(MAX(e.weight_used), 0)
		 FROM workout_log_exercises e
		 JOIN workout_logs l ON l.session_id = e.session_id
		 WHERE l.completed_at >= $1 AND l.completed_at < $2
		   AND l.user_id = $3
		   AND e.section = 'work'
		 GROUP BY e.name
		 ORDER BY SUM(e.weight_used * e.completed_sets * e.target_reps) DESC, e.name`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise summary: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var e ExerciseSummary
		if err := exRows.Scan(&e.Name, &e.Sessions, &e.CompletedSets, &e.TotalSets, &e.Reps, &e.TonnageKg, &e.MaxWeight); err != nil {
			return nil, fmt.Errorf("scanning exercise summary: %w", err)
		}
		e.CompletionRate = completionRate(e.CompletedSets, e.TotalSets)
		result.Exercises = append(result.Exercises, e)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	if exerciseFilter == "" {
		return result, nil
	}

	// Query 2: session history for the filtered exercise
	progRows, err := db.Pool.Query(ctx,
		`SELECT l.completed_at, l.workout_name, e.weight_used,
		        e.completed_sets, e.target_sets, e.target_reps, e.fully_completed
		 FROM workout_log_exercises e
		 JOIN workout_logs l ON l.session_id = e.session_id
		 WHERE l.completed_at >= $1 AND l.completed_at < $2
		   AND l.user_id = $3
		   AND e.section = 'work'
		   AND e.name ILIKE '%' || $4 || '%'
		 ORDER BY l.completed_at ASC, e.position ASC`,
		start, end, userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying exercise progression: %w", err)
	}
	defer progRows.Close()

	for progRows.Next() {
		var p ExerciseProgression
		var completedAt time.Time
		if err := progRows.Scan(&completedAt, &p.WorkoutName, &p.Weight,
			&p.CompletedSets, &p.TargetSets, &p.TargetReps, &p.FullyCompleted); err != nil {
			return nil, fmt.Errorf("scanning exercise progression: %w", err)
		}
		p.Date = completedAt.UTC().Format("2006-01-02")
		p.TonnageKg = p.Weight * float64(p.CompletedSets*p.TargetReps)
		result.Progression = append(result.Progression, p)
	}
	return result, progRows.Err()
}

func completionRate(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}
