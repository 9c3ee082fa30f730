// Package catalog turns stored workout templates into the ordered exercise
// list a workout session runs on.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/repcoach/internal/workout"
	"gopkg.in/yaml.v3"
)

var (
	ErrMixedFormat = errors.New("template mixes exercises list with section arrays")
	ErrNoName      = errors.New("template name is required")
)

// Template is a normalized workout template.
type Template struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Exercises   []workout.Exercise `json:"exercises"`
}

// RawExercise is an exercise as trainers have stored it over time.
type RawExercise struct {
	Name           string     `json:"name" yaml:"name"`
	Section        string     `json:"section" yaml:"section"`
	Sets           flexNumber `json:"sets" yaml:"sets"`
	Reps           flexNumber `json:"reps" yaml:"reps"`
	Rest           flexNumber `json:"rest" yaml:"rest"`
	Weight         flexNumber `json:"weight" yaml:"weight"`
	Notes          string     `json:"notes" yaml:"notes"`
	VideoURL       string     `json:"videoUrl" yaml:"video_url"`
	LegacyVideoURL string     `json:"video_url" yaml:"videoUrl"`
}

// RawTemplate holds either format. At most one of Exercises and the
// section arrays may be populated.
type RawTemplate struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Exercises   []RawExercise `json:"exercises" yaml:"exercises"`
	Warmup      []RawExercise `json:"warmup" yaml:"warmup"`
	Work        []RawExercise `json:"work" yaml:"work"`
	Cooldown    []RawExercise `json:"cooldown" yaml:"cooldown"`
}

// Format reports which layout the raw template uses.
func (r RawTemplate) Format() Format {
	if len(r.Exercises) == 0 && len(r.Warmup)+len(r.Work)+len(r.Cooldown) > 0 {
		return FormatLegacy
	}
	return FormatSectioned
}

// Normalize converts a raw template into canonical form: one list ordered
// warmup, work, cooldown with every exercise validated.
func Normalize(r RawTemplate) (*Template, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, ErrNoName
	}
	if len(r.Exercises) > 0 && len(r.Warmup)+len(r.Work)+len(r.Cooldown) > 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrMixedFormat)
	}

	var exercises []workout.Exercise
	add := func(raw RawExercise, section workout.Section) error {
		ex, err := convertExercise(raw, section)
		if err != nil {
			return fmt.Errorf("%s: exercise %d: %w", name, len(exercises)+1, err)
		}
		exercises = append(exercises, ex)
		return nil
	}

	switch r.Format() {
	case FormatLegacy:
		groups := []struct {
			section workout.Section
			list    []RawExercise
		}{
			{workout.SectionWarmup, r.Warmup},
			{workout.SectionWork, r.Work},
			{workout.SectionCooldown, r.Cooldown},
		}
		for _, g := range groups {
			for _, raw := range g.list {
				if err := add(raw, g.section); err != nil {
					return nil, err
				}
			}
		}
	default:
		for _, raw := range r.Exercises {
			section, err := workout.ParseSection(raw.Section)
			if err != nil {
				return nil, fmt.Errorf("%s: exercise %d: %w", name, len(exercises)+1, err)
			}
			if err := add(raw, section); err != nil {
				return nil, err
			}
		}
	}

	if len(exercises) == 0 {
		return nil, fmt.Errorf("%s: %w", name, workout.ErrNoExercises)
	}
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].Section.Rank() < exercises[j].Section.Rank()
	})

	return &Template{
		Name:        name,
		Description: strings.TrimSpace(r.Description),
		Exercises:   exercises,
	}, nil
}

func convertExercise(raw RawExercise, section workout.Section) (workout.Exercise, error) {
	sets, err := raw.Sets.whole("sets", 0)
	if err != nil {
		return workout.Exercise{}, err
	}
	reps, err := raw.Reps.whole("reps", 1)
	if err != nil {
		return workout.Exercise{}, err
	}
	rest, err := raw.Rest.whole("rest", 0)
	if err != nil {
		return workout.Exercise{}, err
	}
	video := raw.VideoURL
	if video == "" {
		video = raw.LegacyVideoURL
	}

	ex := workout.Exercise{
		Name:              strings.TrimSpace(raw.Name),
		Section:           section,
		TargetSets:        sets,
		TargetReps:        reps,
		RestSeconds:       rest,
		RecommendedWeight: raw.Weight.number(),
		Notes:             strings.TrimSpace(raw.Notes),
		VideoURL:          strings.TrimSpace(video),
	}
	if err := ex.Validate(); err != nil {
		return workout.Exercise{}, err
	}
	return ex, nil
}

// ParseJSON decodes and normalizes a JSON template in either format.
func ParseJSON(data []byte) (*Template, error) {
	var raw RawTemplate
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	return Normalize(raw)
}

// ParseYAML decodes and normalizes a YAML template in either format.
func ParseYAML(data []byte) (*Template, error) {
	var raw RawTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	return Normalize(raw)
}

// LoadFile reads a template from a .json, .yaml or .yml file.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("unsupported template file %s", path)
}

// Loaded pairs a template with the file it came from.
type Loaded struct {
	Path     string
	Template *Template
}

// LoadDir loads every template file directly under dir, sorted by file name.
// Files that fail to load are returned in errs without stopping the walk.
func LoadDir(dir string) (loaded []Loaded, errs []error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tmpl, err := LoadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		loaded = append(loaded, Loaded{Path: path, Template: tmpl})
	}
	return loaded, errs, nil
}
