// Package program persists the saved schedule or routine as a JSON document
// under the user config directory.
package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoProgram is returned by Load when nothing has been saved.
var ErrNoProgram = errors.New("no saved program")

// CurrentVersion is the document version written by Save.
const CurrentVersion = 1

// Duration marshals as a Go duration string ("15m", "1h30m") in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Step is one entry of a program: which effect to run and when. Exactly one
// of At and Delay positions the step; a step with neither runs immediately.
type Step struct {
	// Effect is the registered effect name: fade_in, fade_out, alarm, flash.
	Effect string `json:"effect"`
	// At is a time expression ("07:30", "@sunrise - 20m").
	At string `json:"at,omitempty"`
	// Delay postpones the step relative to the previous one.
	Delay Duration `json:"delay,omitempty"`
	// Duration is the effect length. Zero selects the effect default; for
	// alarm it means run until cancelled.
	Duration Duration `json:"duration,omitempty"`
	// Colour is a preset name for alarm steps.
	Colour string `json:"colour,omitempty"`
	// Style is the alarm style: flash, fast, breathing.
	Style string `json:"style,omitempty"`
	// Interval overrides the flash toggle interval.
	Interval Duration `json:"interval,omitempty"`
}

// Program is the persisted document: a single-step schedule or a multi-step
// routine, distinguished only by the number of steps.
type Program struct {
	Version int    `json:"version"`
	Misfire string `json:"misfire,omitempty"` // run_now (default) or skip
	Steps   []Step `json:"steps"`
}

// Validate checks the document shape without touching any device.
func (p *Program) Validate() error {
	if p.Version != CurrentVersion {
		return fmt.Errorf("unsupported program version %d", p.Version)
	}
	if len(p.Steps) == 0 {
		return errors.New("program has no steps")
	}
	for i, s := range p.Steps {
		switch s.Effect {
		case "fade_in", "fade_out", "alarm", "flash":
		default:
			return fmt.Errorf("step %d: unknown effect %q", i+1, s.Effect)
		}
		if s.At != "" && s.Delay != 0 {
			return fmt.Errorf("step %d: sets both at and delay", i+1)
		}
	}
	return nil
}

// Store reads and writes the program document at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns <UserConfigDir>/huebctl/program.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "huebctl", "program.json"), nil
}

// Path returns the store's file path.
func (s *Store) Path() string { return s.path }

// Save validates and writes the program atomically (temp file + rename).
func (s *Store) Save(p *Program) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".program-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load reads and validates the saved program. Missing file maps to
// ErrNoProgram; a corrupt or unsupported file is reported, not silently
// ignored.
func (s *Store) Load() (*Program, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProgram
		}
		return nil, err
	}

	var p Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &p, nil
}

// Clear removes the saved program. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
