package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// ErrInvalidLog is returned when a submitted log is malformed.
var ErrInvalidLog = errors.New("invalid workout log")

// LogSubmission is a finished session performed away from the server, sent
// to POST /api/v1/logs.
type LogSubmission struct {
	SessionID   uuid.UUID       `json:"session_id"`
	TemplateID  *uuid.UUID      `json:"template_id,omitempty"`
	WorkoutName string          `json:"workout_name"`
	CompletedAt time.Time       `json:"completed_at"`
	Summary     workout.Summary `json:"summary"`
}

// Validate checks the fields the log tables require.
func (l LogSubmission) Validate() error {
	switch {
	case l.SessionID == uuid.Nil:
		return fmt.Errorf("%w: session_id is required", ErrInvalidLog)
	case strings.TrimSpace(l.WorkoutName) == "":
		return fmt.Errorf("%w: workout_name is required", ErrInvalidLog)
	case l.CompletedAt.IsZero():
		return fmt.Errorf("%w: completed_at is required", ErrInvalidLog)
	case l.Summary.DurationSeconds < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidLog)
	case len(l.Summary.Exercises) == 0:
		return fmt.Errorf("%w: summary has no exercises", ErrInvalidLog)
	}
	for i, e := range l.Summary.Exercises {
		if e.Section.Rank() < 0 || e.TargetSets <= 0 || e.TargetReps <= 0 ||
			e.CompletedSets < 0 || e.CompletedSets > e.TargetSets ||
			math.IsNaN(e.WeightUsed) || math.IsInf(e.WeightUsed, 0) || e.WeightUsed < 0 {
			return fmt.Errorf("%w: exercise %d (%s)", ErrInvalidLog, i+1, e.Name)
		}
		if e.FullyCompleted != (e.CompletedSets == e.TargetSets) {
			return fmt.Errorf("%w: exercise %d (%s): fully_completed disagrees with %d of %d sets",
				ErrInvalidLog, i+1, e.Name, e.CompletedSets, e.TargetSets)
		}
	}
	return nil
}

// Row converts the submission into a log row owned by userID.
func (l LogSubmission) Row(userID int) WorkoutLogRow {
	return NewWorkoutLog(l.SessionID, userID, l.TemplateID, strings.TrimSpace(l.WorkoutName), l.CompletedAt, l.Summary)
}
