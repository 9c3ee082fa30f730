package models

import (
	"time"

	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// TemplateRow is a row of the workout_templates table. Exercises are stored
// in canonical, section-ordered form.
type TemplateRow struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Exercises   []workout.Exercise `json:"exercises"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// AssignmentRow links a template to the client who should perform it.
type AssignmentRow struct {
	TemplateID uuid.UUID `json:"template_id"`
	UserID     int       `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// WorkoutLogRow is a row of the workout_logs table with its exercises.
type WorkoutLogRow struct {
	SessionID   uuid.UUID        `json:"session_id"`
	UserID      int              `json:"user_id"`
	TemplateID  *uuid.UUID       `json:"template_id,omitempty"`
	WorkoutName string           `json:"workout_name"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	DurationSec int              `json:"duration_sec"`
	Exercises   []ExerciseLogRow `json:"exercises"`
}

// ExerciseLogRow is a row of the workout_log_exercises table.
type ExerciseLogRow struct {
	SessionID      uuid.UUID `json:"-"`
	Position       int       `json:"position"`
	Name           string    `json:"name"`
	Section        string    `json:"section"`
	TargetSets     int       `json:"target_sets"`
	TargetReps     int       `json:"target_reps"`
	CompletedSets  int       `json:"completed_sets"`
	WeightUsed     float64   `json:"weight_used"`
	FullyCompleted bool      `json:"fully_completed"`
}

// NewWorkoutLog tags a session summary with the identifiers and completion
// time supplied by the caller.
func NewWorkoutLog(sessionID uuid.UUID, userID int, templateID *uuid.UUID, name string, completedAt time.Time, sum workout.Summary) WorkoutLogRow {
	row := WorkoutLogRow{
		SessionID:   sessionID,
		UserID:      userID,
		TemplateID:  templateID,
		WorkoutName: name,
		StartedAt:   sum.StartedAt,
		CompletedAt: completedAt,
		DurationSec: sum.DurationSeconds,
		Exercises:   make([]ExerciseLogRow, len(sum.Exercises)),
	}
	for i, e := range sum.Exercises {
		row.Exercises[i] = ExerciseLogRow{
			SessionID:      sessionID,
			Position:       i + 1,
			Name:           e.Name,
			Section:        string(e.Section),
			TargetSets:     e.TargetSets,
			TargetReps:     e.TargetReps,
			CompletedSets:  e.CompletedSets,
			WeightUsed:     e.WeightUsed,
			FullyCompleted: e.FullyCompleted,
		}
	}
	return row
}

// CompletedSets sums completed sets across the log's exercises.
func (w WorkoutLogRow) CompletedSets() int {
	n := 0
	for _, e := range w.Exercises {
		n += e.CompletedSets
	}
	return n
}

// TotalSets sums target sets across the log's exercises.
func (w WorkoutLogRow) TotalSets() int {
	n := 0
	for _, e := range w.Exercises {
		n += e.TargetSets
	}
	return n
}
