// Package workout implements the guided workout session: an ordered list of
// exercises performed set by set, with rest countdowns between sets and a
// summary produced once the last exercise is done.
//
// A Session never owns a timer. The host calls TickClock and TickRest about
// once per second and serializes every call; a Session is not safe for
// concurrent use.
package workout

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoExercises        = errors.New("workout has no exercises")
	ErrInvalidExercise    = errors.New("invalid exercise")
	ErrSetOutOfRange      = errors.New("set number out of range")
	ErrExerciseIncomplete = errors.New("current exercise is not complete")
	ErrSessionClosed      = errors.New("session is closed")
	ErrInvalidWeight      = errors.New("invalid weight")
)

// State is the conceptual state of a session, derived from its fields.
type State string

const (
	StateActive    State = "active"
	StateResting   State = "resting"
	StatePaused    State = "paused"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

type status int

const (
	statusRunning status = iota
	statusFinished
	statusCancelled
)

// Session is one attempt at performing a workout.
type Session struct {
	exercises []Exercise
	current   int
	completed []map[int]bool
	weights   []float64

	elapsed       int
	resting       bool
	restRemaining int
	paused        bool

	startedAt time.Time
	status    status
	summary   *Summary
}

// NewSession validates the exercises and orders them warmup, work, cooldown,
// keeping the given order within each section.
func NewSession(exercises []Exercise, startedAt time.Time) (*Session, error) {
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	for i, e := range exercises {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("exercise %d: %w", i+1, err)
		}
	}

	ordered := make([]Exercise, len(exercises))
	copy(ordered, exercises)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Section.Rank() < ordered[j].Section.Rank()
	})

	s := &Session{
		exercises: ordered,
		completed: make([]map[int]bool, len(ordered)),
		weights:   make([]float64, len(ordered)),
		startedAt: startedAt,
	}
	for i, e := range ordered {
		s.completed[i] = make(map[int]bool, e.TargetSets)
		s.weights[i] = e.RecommendedWeight
	}
	return s, nil
}

// State returns the derived session state. An active rest countdown takes
// precedence over pause since both stop the workout clock.
func (s *Session) State() State {
	switch {
	case s.status == statusCancelled:
		return StateCancelled
	case s.status == statusFinished:
		return StateFinished
	case s.resting:
		return StateResting
	case s.paused:
		return StatePaused
	default:
		return StateActive
	}
}

// ToggleSetComplete flips the completion of a 1-based set of the current
// exercise and returns the new completion value. Completing any set but the
// last starts a rest countdown when the exercise has rest configured.
func (s *Session) ToggleSetComplete(setNumber int) (bool, error) {
	if s.status != statusRunning {
		return false, ErrSessionClosed
	}
	ex := s.exercises[s.current]
	if setNumber < 1 || setNumber > ex.TargetSets {
		return false, fmt.Errorf("%w: set %d of %d", ErrSetOutOfRange, setNumber, ex.TargetSets)
	}

	done := s.completed[s.current]
	if done[setNumber] {
		delete(done, setNumber)
		return false, nil
	}
	done[setNumber] = true
	if setNumber < ex.TargetSets && ex.RestSeconds > 0 {
		s.resting = true
		s.restRemaining = ex.RestSeconds
	}
	return true, nil
}

// AdjustWeight adds delta to the current exercise's working weight, never
// going below zero, and returns the new weight.
func (s *Session) AdjustWeight(delta float64) (float64, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, delta)
	}
	if s.status != statusRunning {
		return 0, ErrSessionClosed
	}
	return s.SetWeight(s.weights[s.current] + delta)
}

// SetWeight replaces the current exercise's working weight. Negative values
// are clamped to zero.
func (s *Session) SetWeight(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, value)
	}
	if s.status != statusRunning {
		return 0, ErrSessionClosed
	}
	s.weights[s.current] = math.Max(0, value)
	return s.weights[s.current], nil
}

// TickClock advances the workout clock by one second unless the session is
// paused, resting or closed.
func (s *Session) TickClock() {
	if s.status != statusRunning || s.paused || s.resting {
		return
	}
	s.elapsed++
}

// TickRest counts the rest countdown down by one second. It reports true on
// the tick that ends the countdown.
func (s *Session) TickRest() bool {
	if s.status != statusRunning || !s.resting {
		return false
	}
	if s.restRemaining > 0 {
		s.restRemaining--
	}
	if s.restRemaining == 0 {
		s.resting = false
		return true
	}
	return false
}

// SkipRest ends any rest countdown immediately.
func (s *Session) SkipRest() error {
	if s.status != statusRunning {
		return ErrSessionClosed
	}
	s.clearRest()
	return nil
}

// Pause stops the workout clock. The rest countdown keeps running.
func (s *Session) Pause() error {
	if s.status != statusRunning {
		return ErrSessionClosed
	}
	s.paused = true
	return nil
}

// Resume restarts the workout clock.
func (s *Session) Resume() error {
	if s.status != statusRunning {
		return ErrSessionClosed
	}
	s.paused = false
	return nil
}

// TogglePause flips between paused and running and returns the new value.
func (s *Session) TogglePause() (bool, error) {
	if s.status != statusRunning {
		return false, ErrSessionClosed
	}
	s.paused = !s.paused
	return s.paused, nil
}

// IsCurrentExerciseComplete reports whether every set of the current
// exercise is marked complete.
func (s *Session) IsCurrentExerciseComplete() bool {
	if s.current >= len(s.exercises) {
		return false
	}
	return len(s.completed[s.current]) == s.exercises[s.current].TargetSets
}

// Advance moves to the next exercise once the current one is complete.
// Advancing past the last exercise finishes the session and returns its
// summary; otherwise the returned summary is nil.
func (s *Session) Advance() (*Summary, error) {
	if s.status != statusRunning {
		return nil, ErrSessionClosed
	}
	if !s.IsCurrentExerciseComplete() {
		ex := s.exercises[s.current]
		return nil, fmt.Errorf("%w: %s has %d of %d sets",
			ErrExerciseIncomplete, ex.Name, len(s.completed[s.current]), ex.TargetSets)
	}

	s.clearRest()
	if s.current == len(s.exercises)-1 {
		sum := Summarize(s)
		s.current = len(s.exercises)
		s.status = statusFinished
		s.summary = &sum
		return s.summary, nil
	}
	s.current++
	return nil, nil
}

// Cancel discards the session. No summary is ever produced for a cancelled
// session. Cancelling twice is a no-op; a finished session cannot be cancelled.
func (s *Session) Cancel() error {
	switch s.status {
	case statusFinished:
		return ErrSessionClosed
	case statusCancelled:
		return nil
	}
	s.clearRest()
	s.status = statusCancelled
	return nil
}

func (s *Session) clearRest() {
	s.resting = false
	s.restRemaining = 0
}

// Exercises returns the session's exercises in performance order.
func (s *Session) Exercises() []Exercise {
	out := make([]Exercise, len(s.exercises))
	copy(out, s.exercises)
	return out
}

// CurrentIndex returns the index of the exercise being performed, or the
// number of exercises once the session has finished.
func (s *Session) CurrentIndex() int { return s.current }

// Current returns the exercise being performed.
func (s *Session) Current() (Exercise, bool) {
	if s.current >= len(s.exercises) {
		return Exercise{}, false
	}
	return s.exercises[s.current], true
}

// CurrentSet returns the lowest incomplete set number of the current
// exercise, or 0 when every set is done.
func (s *Session) CurrentSet() int {
	if s.current >= len(s.exercises) {
		return 0
	}
	for n := 1; n <= s.exercises[s.current].TargetSets; n++ {
		if !s.completed[s.current][n] {
			return n
		}
	}
	return 0
}

// CompletedSets returns the sorted completed set numbers of exercise i.
func (s *Session) CompletedSets(i int) []int {
	if i < 0 || i >= len(s.exercises) {
		return nil
	}
	sets := make([]int, 0, len(s.completed[i]))
	for n := range s.completed[i] {
		sets = append(sets, n)
	}
	sort.Ints(sets)
	return sets
}

// WorkingWeight returns the working weight of exercise i.
func (s *Session) WorkingWeight(i int) float64 {
	if i < 0 || i >= len(s.weights) {
		return 0
	}
	return s.weights[i]
}

// Elapsed returns the accrued workout time in seconds.
func (s *Session) Elapsed() int { return s.elapsed }

// RestRemaining returns the countdown value and whether a rest is active.
func (s *Session) RestRemaining() (int, bool) { return s.restRemaining, s.resting }

// Paused reports whether the workout clock is paused.
func (s *Session) Paused() bool { return s.paused }

// StartedAt returns the time the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Summary returns the summary of a finished session.
func (s *Session) Summary() (*Summary, bool) {
	return s.summary, s.summary != nil
}

// Progress returns the fraction of all target sets marked complete.
func (s *Session) Progress() float64 {
	var done, total int
	for i, e := range s.exercises {
		total += e.TargetSets
		done += len(s.completed[i])
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
