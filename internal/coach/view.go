package coach

import (
	"sort"
	"time"

	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// StatePendingCommit marks a finished session whose log has not been saved.
const StatePendingCommit workout.State = "pending_commit"

// StateFinished is reported once a finished session's log is saved.
const StateFinished = workout.StateFinished

// View is a JSON-friendly snapshot of a session.
type View struct {
	ID             uuid.UUID          `json:"id"`
	TemplateID     uuid.UUID          `json:"template_id"`
	Workout        string             `json:"workout"`
	State          workout.State      `json:"state"`
	StartedAt      time.Time          `json:"started_at"`
	ElapsedSeconds int                `json:"elapsed_sec"`
	RestRemaining  *int               `json:"rest_remaining_sec,omitempty"`
	Paused         bool               `json:"paused"`
	Progress       float64            `json:"progress"`
	CurrentIndex   int                `json:"current_index"`
	Current        *ExerciseView      `json:"current,omitempty"`
	Exercises      []workout.Exercise `json:"exercises"`
	Summary        *workout.Summary   `json:"summary,omitempty"`
}

// ExerciseView is the exercise being performed with its live progress.
type ExerciseView struct {
	workout.Exercise
	CompletedSets []int   `json:"completed_sets"`
	CurrentSet    int     `json:"current_set"`
	WorkingWeight float64 `json:"working_weight"`
	Complete      bool    `json:"complete"`
}

func (e *entry) view() View {
	s := e.session
	v := View{
		ID:             e.id,
		TemplateID:     e.templateID,
		Workout:        e.name,
		State:          s.State(),
		StartedAt:      s.StartedAt(),
		ElapsedSeconds: s.Elapsed(),
		Paused:         s.Paused(),
		Progress:       s.Progress(),
		CurrentIndex:   s.CurrentIndex(),
		Exercises:      s.Exercises(),
	}
	if rest, ok := s.RestRemaining(); ok {
		v.RestRemaining = &rest
	}
	if ex, ok := s.Current(); ok {
		i := s.CurrentIndex()
		v.Current = &ExerciseView{
			Exercise:      ex,
			CompletedSets: s.CompletedSets(i),
			CurrentSet:    s.CurrentSet(),
			WorkingWeight: s.WorkingWeight(i),
			Complete:      s.IsCurrentExerciseComplete(),
		}
	}
	if sum, ok := s.Summary(); ok {
		v.Summary = sum
	}
	if e.pending != nil {
		v.State = StatePendingCommit
	}
	return v
}

func sortViews(views []View) {
	sort.Slice(views, func(i, j int) bool {
		return views[i].StartedAt.Before(views[j].StartedAt)
	})
}
