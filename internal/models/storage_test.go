package models

import (
	"testing"
	"time"

	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// TestNewWorkoutLog verifies a summary is tagged with the caller's session
// id and completion time, and exercises keep their performance order.
func TestNewWorkoutLog(t *testing.T) {
	sessionID := uuid.New()
	templateID := uuid.New()
	started := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	completed := started.Add(50 * time.Minute)

	sum := workout.Summary{
		StartedAt:       started,
		DurationSeconds: 2400,
		Exercises: []workout.ExerciseResult{
			{Name: "Row Erg", Section: workout.SectionWarmup, TargetSets: 1, TargetReps: 1, CompletedSets: 1, FullyCompleted: true},
			{Name: "Deadlift", Section: workout.SectionWork, TargetSets: 3, TargetReps: 5, CompletedSets: 3, WeightUsed: 140, FullyCompleted: true},
		},
	}

	row := NewWorkoutLog(sessionID, 7, &templateID, "Pull Day", completed, sum)

	if row.SessionID != sessionID || row.UserID != 7 || *row.TemplateID != templateID {
		t.Errorf("identifiers not carried over: %+v", row)
	}
	if !row.CompletedAt.Equal(completed) || !row.StartedAt.Equal(started) {
		t.Errorf("times = %v / %v", row.StartedAt, row.CompletedAt)
	}
	if row.DurationSec != 2400 {
		t.Errorf("duration = %d, want 2400", row.DurationSec)
	}
	if len(row.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(row.Exercises))
	}
	dl := row.Exercises[1]
	if dl.Position != 2 || dl.Name != "Deadlift" || dl.Section != "work" || dl.WeightUsed != 140 || dl.SessionID != sessionID {
		t.Errorf("deadlift row = %+v", dl)
	}
	if row.CompletedSets() != 4 || row.TotalSets() != 4 {
		t.Errorf("sets = %d/%d, want 4/4", row.CompletedSets(), row.TotalSets())
	}
}
