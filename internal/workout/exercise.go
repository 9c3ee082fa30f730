package workout

import (
	"fmt"
	"math"
	"strings"
)

// MaxTargetSets bounds the set count of a single exercise.
const MaxTargetSets = 100

// Section groups exercises within a workout. Sections always run in the
// order warmup, work, cooldown.
type Section string

const (
	SectionWarmup   Section = "warmup"
	SectionWork     Section = "work"
	SectionCooldown Section = "cooldown"
)

// Rank returns the ordering key of the section.
func (s Section) Rank() int {
	switch s {
	case SectionWarmup:
		return 0
	case SectionWork:
		return 1
	case SectionCooldown:
		return 2
	default:
		return -1
	}
}

// ParseSection maps a case-insensitive section name to a Section.
// An empty name is treated as work.
func ParseSection(raw string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "warmup", "warm-up", "warm up":
		return SectionWarmup, nil
	case "work", "main", "":
		return SectionWork, nil
	case "cooldown", "cool-down", "cool down":
		return SectionCooldown, nil
	}
	return "", fmt.Errorf("unknown section %q", raw)
}

// Exercise is one catalog entry of a workout. It is never mutated by a Session.
type Exercise struct {
	Name              string  `json:"name" yaml:"name"`
	Section           Section `json:"section" yaml:"section"`
	TargetSets        int     `json:"target_sets" yaml:"target_sets"`
	TargetReps        int     `json:"target_reps" yaml:"target_reps"`
	RestSeconds       int     `json:"rest_seconds" yaml:"rest_seconds"`
	RecommendedWeight float64 `json:"recommended_weight" yaml:"recommended_weight"`
	Notes             string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	VideoURL          string  `json:"video_url,omitempty" yaml:"video_url,omitempty"`
}

// Validate reports the first field that makes the exercise unusable in a session.
func (e Exercise) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidExercise)
	}
	if e.Section.Rank() < 0 {
		return fmt.Errorf("%w: %s: unknown section %q", ErrInvalidExercise, e.Name, e.Section)
	}
	if e.TargetSets <= 0 || e.TargetSets > MaxTargetSets {
		return fmt.Errorf("%w: %s: target_sets must be between 1 and %d, got %d", ErrInvalidExercise, e.Name, MaxTargetSets, e.TargetSets)
	}
	if e.TargetReps <= 0 {
		return fmt.Errorf("%w: %s: target_reps must be positive, got %d", ErrInvalidExercise, e.Name, e.TargetReps)
	}
	if e.RestSeconds < 0 {
		return fmt.Errorf("%w: %s: rest_seconds must not be negative", ErrInvalidExercise, e.Name)
	}
	if math.IsNaN(e.RecommendedWeight) || math.IsInf(e.RecommendedWeight, 0) || e.RecommendedWeight < 0 {
		return fmt.Errorf("%w: %s: recommended_weight must be a non-negative number, got %v", ErrInvalidExercise, e.Name, e.RecommendedWeight)
	}
	return nil
}
