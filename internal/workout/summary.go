package workout

import "time"

// Summary is the record of a finished session handed to persistence.
type Summary struct {
	StartedAt       time.Time        `json:"started_at"`
	DurationSeconds int              `json:"duration_sec"`
	Exercises       []ExerciseResult `json:"exercises"`
}

// ExerciseResult is the outcome of one exercise within a Summary.
type ExerciseResult struct {
	Name           string  `json:"name"`
	Section        Section `json:"section"`
	TargetSets     int     `json:"target_sets"`
	TargetReps     int     `json:"target_reps"`
	CompletedSets  int     `json:"completed_sets"`
	WeightUsed     float64 `json:"weight_used"`
	FullyCompleted bool    `json:"fully_completed"`
}

// Summarize derives the summary from the session's current state.
// Sessions produce it themselves when Advance passes the last exercise.
func Summarize(s *Session) Summary {
	sum := Summary{
		StartedAt:       s.startedAt,
		DurationSeconds: s.elapsed,
		Exercises:       make([]ExerciseResult, len(s.exercises)),
	}
	for i, e := range s.exercises {
		done := len(s.completed[i])
		sum.Exercises[i] = ExerciseResult{
			Name:           e.Name,
			Section:        e.Section,
			TargetSets:     e.TargetSets,
			TargetReps:     e.TargetReps,
			CompletedSets:  done,
			WeightUsed:     s.weights[i],
			FullyCompleted: done == e.TargetSets,
		}
	}
	return sum
}

// TotalSets returns the number of target sets across all exercises.
func (s Summary) TotalSets() int {
	n := 0
	for _, e := range s.Exercises {
		n += e.TargetSets
	}
	return n
}

// CompletedSets returns the number of sets marked complete across all exercises.
func (s Summary) CompletedSets() int {
	n := 0
	for _, e := range s.Exercises {
		n += e.CompletedSets
	}
	return n
}
