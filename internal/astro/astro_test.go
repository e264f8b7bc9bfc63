package astro

import (
	"testing"
	"time"
)

func TestDayOrdering(t *testing.T) {
	// Amsterdam, a midsummer day.
	c := NewCalculator(52.37, 4.90, "Europe/Amsterdam")
	date := time.Date(2026, time.June, 21, 12, 0, 0, 0, c.Timezone())

	d := c.Day(date)

	ordered := []struct {
		name   string
		before time.Time
		after  time.Time
	}{
		{"dawn before sunrise", d.Dawn, d.Sunrise},
		{"sunrise before noon", d.Sunrise, d.Noon},
		{"noon before sunset", d.Noon, d.Sunset},
		{"sunset before dusk", d.Sunset, d.Dusk},
	}
	for _, o := range ordered {
		if !o.before.Before(o.after) {
			t.Errorf("%s violated: %v vs %v", o.name, o.before, o.after)
		}
	}
}

func TestDaySameDate(t *testing.T) {
	c := NewCalculator(52.37, 4.90, "Europe/Amsterdam")
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, c.Timezone())

	d := c.Day(date)
	for _, tt := range []time.Time{d.Dawn, d.Sunrise, d.Noon, d.Sunset, d.Dusk} {
		if tt.Year() != 2026 || tt.Month() != time.March || tt.Day() != 10 {
			t.Errorf("event %v not on requested date", tt)
		}
	}
}

func TestSummerDayLongerThanWinter(t *testing.T) {
	c := NewCalculator(52.37, 4.90, "Europe/Amsterdam")
	summer := c.Day(time.Date(2026, time.June, 21, 12, 0, 0, 0, c.Timezone()))
	winter := c.Day(time.Date(2026, time.December, 21, 12, 0, 0, 0, c.Timezone()))

	summerLen := summer.Sunset.Sub(summer.Sunrise)
	winterLen := winter.Sunset.Sub(winter.Sunrise)
	if summerLen <= winterLen {
		t.Errorf("summer day %v not longer than winter day %v", summerLen, winterLen)
	}
}

func TestSolarNoonAbsoluteInstant(t *testing.T) {
	// Amsterdam solar noon on the 2026 June solstice is 13:43 CEST
	// (11:43 UTC): 12:00 minus lon/15° of about 20 minutes, plus the
	// equation of time.
	c := NewCalculator(52.37, 4.90, "Europe/Amsterdam")
	d := c.Day(time.Date(2026, time.June, 21, 12, 0, 0, 0, c.Timezone()))

	want := time.Date(2026, time.June, 21, 13, 43, 0, 0, c.Timezone())
	if diff := d.Noon.Sub(want); diff < -5*time.Minute || diff > 5*time.Minute {
		t.Errorf("solar noon = %v, want %v ± 5m", d.Noon, want)
	}
}

func TestEventsIndependentOfConfiguredZone(t *testing.T) {
	// The same coordinates must yield the same instants regardless of the
	// zone the calculator renders them in; only the wall-clock labels
	// differ.
	utc := NewCalculator(52.37, 4.90, "UTC")
	ams := NewCalculator(52.37, 4.90, "Europe/Amsterdam")

	date := time.Date(2026, time.June, 21, 12, 0, 0, 0, time.UTC)
	du := utc.Day(date)
	da := ams.Day(date.In(ams.Timezone()))

	events := []struct {
		name string
		u, a time.Time
	}{
		{"sunrise", du.Sunrise, da.Sunrise},
		{"noon", du.Noon, da.Noon},
		{"sunset", du.Sunset, da.Sunset},
	}
	for _, e := range events {
		if !e.u.Equal(e.a) {
			t.Errorf("%s differs across zones: %v vs %v", e.name, e.u, e.a)
		}
	}
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	c := NewCalculator(0, 0, "Nowhere/Invalid")
	if c.Timezone() != time.UTC {
		t.Errorf("timezone = %v, want UTC", c.Timezone())
	}
}

func TestDayCached(t *testing.T) {
	c := NewCalculator(52.37, 4.90, "UTC")
	date := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	if c.Day(date) != c.Day(date) {
		t.Error("repeated Day calls for one date returned different pointers")
	}
}
