package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format describes how a stored template lays out its exercises.
type Format int

const (
	FormatSectioned Format = iota // {"exercises": [{"section": "warmup", ...}]}
	FormatLegacy                  // {"warmup": [...], "work": [...], "cooldown": [...]}
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "sectioned"
}

// DetectFormat probes a raw JSON template for the keys that distinguish the
// legacy per-section arrays from the single sectioned list.
func DetectFormat(raw json.RawMessage) Format {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return FormatSectioned // fallback
	}
	if _, ok := probe["exercises"]; ok {
		return FormatSectioned
	}
	for _, key := range []string{"warmup", "work", "cooldown"} {
		if _, ok := probe[key]; ok {
			return FormatLegacy
		}
	}
	return FormatSectioned // fallback
}

// flexNumber accepts 3, 3.5, "3" and "3,5". Trainer forms have stored
// numeric fields as strings for as long as templates have existed.
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = flexNumber{}
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexNumber{value: v, set: true}
	return nil
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = flexNumber{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexNumber{value: v, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	return f.parse(s)
}

func (f *flexNumber) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	if node.Tag == "!!null" {
		*f = flexNumber{}
		return nil
	}
	return f.parse(node.Value)
}

func (f flexNumber) number() float64 { return f.value }

// whole returns the value as a whole number; def is used when the field is absent.
func (f flexNumber) whole(field string, def int) (int, error) {
	if !f.set {
		return def, nil
	}
	if f.value != math.Trunc(f.value) {
		return 0, fmt.Errorf("%s must be a whole number, got %v", field, f.value)
	}
	return int(f.value), nil
}
