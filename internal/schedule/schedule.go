package schedule

import (
	"fmt"
	"time"
)

// MisfirePolicy decides what happens when a saved program's scheduled time
// already passed for today.
type MisfirePolicy string

const (
	// MisfireRunNow runs the effect immediately.
	MisfireRunNow MisfirePolicy = "run_now"
	// MisfireSkip waits for the next day's occurrence instead.
	MisfireSkip MisfirePolicy = "skip"
)

// Occurrence is a concrete firing point of a schedule. Its key deduplicates
// repeated runs of the same occurrence in the run history.
type Occurrence struct {
	Key  string
	Time time.Time
}

// NewOccurrence builds an occurrence with the standard key format
// "effect@expr/unixtime".
func NewOccurrence(scheduleID string, t time.Time) *Occurrence {
	return &Occurrence{
		Key:  fmt.Sprintf("%s/%d", scheduleID, t.Unix()),
		Time: t,
	}
}

// DailySchedule fires once per day at a time expression.
type DailySchedule struct {
	id        string
	expr      *TimeExpr
	evaluator *Evaluator
}

// NewDailySchedule parses the time expression and binds it to an evaluator.
// Astronomical expressions fail early when the evaluator has no coordinates.
func NewDailySchedule(id, timeExpr string, evaluator *Evaluator) (*DailySchedule, error) {
	expr, err := ParseTimeExpr(timeExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid time expression: %w", err)
	}
	if expr.IsAstronomical() && !evaluator.SupportsAstronomical() {
		return nil, fmt.Errorf("astronomical time expression %q requires configured astro coordinates", timeExpr)
	}
	return &DailySchedule{id: id, expr: expr, evaluator: evaluator}, nil
}

func (s *DailySchedule) ID() string { return s.id }

// Next returns the next occurrence after the given time, or nil.
func (s *DailySchedule) Next(after time.Time) *Occurrence {
	t, ok := s.evaluator.Next(s.expr, after)
	if !ok {
		return nil
	}
	return NewOccurrence(s.id, t)
}

// Prev returns the previous occurrence before the given time, or nil.
func (s *DailySchedule) Prev(before time.Time) *Occurrence {
	t, ok := s.evaluator.Prev(s.expr, before)
	if !ok {
		return nil
	}
	return NewOccurrence(s.id, t)
}

// OnceSchedule fires a single time: either at an absolute time or after a
// relative delay from now.
type OnceSchedule struct {
	id string
	at time.Time
}

// NewOnceAt creates a one-shot schedule for an absolute time.
func NewOnceAt(id string, at time.Time) *OnceSchedule {
	return &OnceSchedule{id: id, at: at}
}

// NewOnceAfter creates a one-shot schedule delayed from now.
func NewOnceAfter(id string, delay time.Duration) *OnceSchedule {
	return &OnceSchedule{id: id, at: time.Now().Add(delay)}
}

func (s *OnceSchedule) ID() string { return s.id }

// Next returns the single occurrence if it is still ahead of the given time.
func (s *OnceSchedule) Next(after time.Time) *Occurrence {
	if s.at.After(after) {
		return NewOccurrence(s.id, s.at)
	}
	return nil
}

// Time returns the scheduled firing time.
func (s *OnceSchedule) Time() time.Time { return s.at }
