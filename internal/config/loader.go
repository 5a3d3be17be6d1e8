package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crunch/internal/work"
)

// ValidationError reports a configuration value that cannot be defaulted.
// It is fatal: the scheduler does not start.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Load reads the YAML file at path, applies defaults, and validates the
// result. An empty path yields the defaults.
func Load(path string, warn func(string)) (Config, error) {
	if path == "" {
		cfg := Defaults()
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes.NewReader(data), warn)
}

// Parse decodes YAML from r with unknown fields rejected, applies
// defaults, and validates the result.
func Parse(r io.Reader, warn func(string)) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg = ApplyDefaults(cfg, warn)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks what ApplyDefaults cannot fix: unknown kinds, bad spawn
// weights, unnamed or duplicate workers, and non-finite worker values.
func Validate(cfg Config) error {
	for i, e := range cfg.Spawn.Entries {
		if _, err := work.ParseKind(e.Kind); err != nil {
			return &ValidationError{Field: fmt.Sprintf("spawn.entries[%d].kind", i), Message: err.Error()}
		}
		if !(e.Weight > 0) || math.IsInf(e.Weight, 0) {
			return &ValidationError{Field: fmt.Sprintf("spawn.entries[%d].weight", i), Message: fmt.Sprintf("must be finite and > 0, got %v", e.Weight)}
		}
	}

	if t := cfg.Breaks.FocusThreshold; t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0)) {
		return &ValidationError{Field: "breaks.focus_threshold", Message: "must be finite"}
	}

	seen := make(map[string]bool, len(cfg.Workers))
	for i, w := range cfg.Workers {
		field := fmt.Sprintf("workers[%d]", i)
		if w.Name == "" {
			return &ValidationError{Field: field + ".name", Message: "name is required"}
		}
		if seen[w.Name] {
			return &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate worker %q", w.Name)}
		}
		seen[w.Name] = true

		if c := w.Characteristics; c != nil && !finite(c.Experience, c.Rigor, c.Skill, c.Fitness) {
			return &ValidationError{Field: field + ".characteristics", Message: "must be finite"}
		}
		if r := w.Resources; r != nil && !finite(r.Energy, r.Focus, r.Stress) {
			return &ValidationError{Field: field + ".resources", Message: "must be finite"}
		}
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
