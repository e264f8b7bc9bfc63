// Package schedule parses time expressions, computes schedule occurrences and
// runs saved programs. Fixed times ("07:30") work everywhere; astronomical
// times ("@sunrise - 20m") need configured coordinates.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"huebctl/internal/astro"
)

// BaseTime is the anchor of a time expression.
type BaseTime int

const (
	BaseFixed BaseTime = iota
	BaseDawn
	BaseSunrise
	BaseNoon
	BaseSunset
	BaseDusk
)

// TimeExpr is a parsed time expression.
type TimeExpr struct {
	Raw       string
	Base      BaseTime
	FixedHour int
	FixedMin  int
	Offset    time.Duration
}

var (
	// "@dawn", "@sunset", "@noon + 30m", "@sunrise - 1h30m"
	astroPattern = regexp.MustCompile(`^@(\w+)\s*([+-]\s*\d+[hms]+(?:\d+[ms]+)?)?$`)
	// "22:15", "06:30"
	fixedPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	// "+30m", "-1h30m"
	offsetPattern = regexp.MustCompile(`([+-])\s*(.+)`)
)

// ParseTimeExpr parses a time expression string.
func ParseTimeExpr(expr string) (*TimeExpr, error) {
	expr = strings.TrimSpace(expr)

	if matches := fixedPattern.FindStringSubmatch(expr); matches != nil {
		hour, _ := strconv.Atoi(matches[1])
		min, _ := strconv.Atoi(matches[2])

		if hour > 23 {
			return nil, fmt.Errorf("invalid hour: %d", hour)
		}
		if min > 59 {
			return nil, fmt.Errorf("invalid minute: %d", min)
		}

		return &TimeExpr{Raw: expr, Base: BaseFixed, FixedHour: hour, FixedMin: min}, nil
	}

	if matches := astroPattern.FindStringSubmatch(expr); matches != nil {
		var base BaseTime
		switch strings.ToLower(matches[1]) {
		case "dawn":
			base = BaseDawn
		case "sunrise":
			base = BaseSunrise
		case "noon":
			base = BaseNoon
		case "sunset":
			base = BaseSunset
		case "dusk":
			base = BaseDusk
		default:
			return nil, fmt.Errorf("unknown astronomical time: %s", matches[1])
		}

		var offset time.Duration
		if matches[2] != "" {
			d, err := parseOffset(strings.ReplaceAll(matches[2], " ", ""))
			if err != nil {
				return nil, fmt.Errorf("invalid offset: %w", err)
			}
			offset = d
		}

		return &TimeExpr{Raw: expr, Base: base, Offset: offset}, nil
	}

	return nil, fmt.Errorf("invalid time expression: %s", expr)
}

func parseOffset(s string) (time.Duration, error) {
	matches := offsetPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid offset format: %s", s)
	}

	d, err := time.ParseDuration(matches[2])
	if err != nil {
		return 0, err
	}
	if matches[1] == "-" {
		d = -d
	}
	return d, nil
}

// IsAstronomical reports whether the expression needs solar times.
func (te *TimeExpr) IsAstronomical() bool {
	return te.Base != BaseFixed
}

// String returns the original expression string.
func (te *TimeExpr) String() string {
	return te.Raw
}

// Evaluator resolves expressions to concrete times. The astro calculator may
// be nil, in which case astronomical expressions are rejected at parse time
// by callers checking SupportsAstronomical.
type Evaluator struct {
	astro *astro.Calculator
	tz    *time.Location
}

// NewEvaluator creates an evaluator. calc may be nil when no coordinates are
// configured; tz must not be nil.
func NewEvaluator(calc *astro.Calculator, tz *time.Location) *Evaluator {
	if tz == nil {
		tz = time.Local
	}
	return &Evaluator{astro: calc, tz: tz}
}

// SupportsAstronomical reports whether "@sunrise"-style expressions can be
// evaluated.
func (e *Evaluator) SupportsAstronomical() bool {
	return e.astro != nil
}

// Timezone returns the evaluator's timezone.
func (e *Evaluator) Timezone() *time.Location {
	return e.tz
}

// Evaluate resolves the expression on the given date. The bool is false when
// the expression cannot be evaluated (astronomical without coordinates).
func (e *Evaluator) Evaluate(expr *TimeExpr, date time.Time) (time.Time, bool) {
	if expr.Base == BaseFixed {
		t := time.Date(date.Year(), date.Month(), date.Day(),
			expr.FixedHour, expr.FixedMin, 0, 0, e.tz)
		return t.Add(expr.Offset), true
	}

	if e.astro == nil {
		return time.Time{}, false
	}

	day := e.astro.Day(date.In(e.tz))
	var base time.Time
	switch expr.Base {
	case BaseDawn:
		base = day.Dawn
	case BaseSunrise:
		base = day.Sunrise
	case BaseNoon:
		base = day.Noon
	case BaseSunset:
		base = day.Sunset
	case BaseDusk:
		base = day.Dusk
	}
	return base.Add(expr.Offset), true
}

// Next finds the first occurrence strictly after the given time, scanning up
// to a year ahead.
func (e *Evaluator) Next(expr *TimeExpr, after time.Time) (time.Time, bool) {
	date := after.In(e.tz)
	for i := 0; i < 366; i++ {
		t, ok := e.Evaluate(expr, date.AddDate(0, 0, i))
		if !ok {
			return time.Time{}, false
		}
		if t.After(after) {
			return t, true
		}
	}
	return time.Time{}, false
}

// Prev finds the last occurrence strictly before the given time, scanning up
// to a year back.
func (e *Evaluator) Prev(expr *TimeExpr, before time.Time) (time.Time, bool) {
	date := before.In(e.tz)
	for i := 0; i < 366; i++ {
		t, ok := e.Evaluate(expr, date.AddDate(0, 0, -i))
		if !ok {
			return time.Time{}, false
		}
		if t.Before(before) {
			return t, true
		}
	}
	return time.Time{}, false
}
