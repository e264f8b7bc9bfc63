// Package effect plays back time-ordered parameter changes against a bulb:
// sunrise and sundown fades, power flashing, and the alarm styles. Plans are
// computed up front as pure data; the runner only walks them.
package effect

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"huebctl/internal/bulb"
)

// Writer is the narrow slice of the device session the runner needs. It is
// satisfied by *bulb.Bulb; tests substitute a recorder.
type Writer interface {
	SetPower(ctx context.Context, on bool) error
	SetBrightness(ctx context.Context, v int) error
	SetColourTemp(ctx context.Context, mireds int) error
	SetColourXY(ctx context.Context, x, y float64) error
}

// Style selects the alarm behaviour.
type Style string

const (
	StyleFlash     Style = "flash"     // on/off every 500ms
	StyleFast      Style = "fast"      // on/off every 200ms
	StyleBreathing Style = "breathing" // brightness ramp 254..20 in steps of 15
)

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleFlash, StyleFast, StyleBreathing:
		return Style(s), nil
	}
	return "", fmt.Errorf("unknown alarm style %q (flash, fast, breathing)", s)
}

const (
	flashInterval   = 500 * time.Millisecond
	fastInterval    = 200 * time.Millisecond
	breatheInterval = 50 * time.Millisecond
	breatheFloor    = 20
	breatheStep     = 15
)

// Progress reports fade progress after each completed step.
type Progress func(step, total int, s Step)

// Runner sequences effects against a Writer. Zero value is not usable; use
// New.
type Runner struct {
	w            Writer
	stepInterval time.Duration
	onProgress   Progress

	// sleep is swapped out by tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a runner. stepInterval <= 0 selects DefaultStepInterval;
// onProgress may be nil.
func New(w Writer, stepInterval time.Duration, onProgress Progress) *Runner {
	if stepInterval <= 0 {
		stepInterval = DefaultStepInterval
	}
	return &Runner{
		w:            w,
		stepInterval: stepInterval,
		onProgress:   onProgress,
		sleep:        sleepCtx,
	}
}

// sleepCtx suspends until d elapses or ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sunrise powers the bulb on and fades from warm/dim to cool/bright over the
// given duration. Cancellation leaves the bulb at the last completed step.
func (r *Runner) Sunrise(ctx context.Context, duration time.Duration) error {
	log.Info().Dur("duration", duration).Msg("Starting sunrise")
	if err := r.w.SetPower(ctx, true); err != nil {
		return err
	}
	return r.fade(ctx, SunriseStart, SunriseEnd, duration)
}

// Sundown fades from cool/bright to warm/dim over the given duration and
// powers the bulb off at the end.
func (r *Runner) Sundown(ctx context.Context, duration time.Duration) error {
	log.Info().Dur("duration", duration).Msg("Starting sundown")
	if err := r.w.SetPower(ctx, true); err != nil {
		return err
	}
	if err := r.fade(ctx, SunriseEnd, SunriseStart, duration); err != nil {
		return err
	}
	return r.w.SetPower(ctx, false)
}

func (r *Runner) fade(ctx context.Context, from, to Step, duration time.Duration) error {
	steps := Plan(from, to, StepCount(duration, r.stepInterval))
	tick := duration / time.Duration(len(steps)-1)

	for i, s := range steps {
		if err := r.w.SetBrightness(ctx, s.Brightness); err != nil {
			return err
		}
		if err := r.w.SetColourTemp(ctx, s.Mirek); err != nil {
			return err
		}
		if r.onProgress != nil {
			r.onProgress(i, len(steps), s)
		}
		if i < len(steps)-1 {
			if err := r.sleep(ctx, tick); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flash toggles power at the given interval for the given duration, assuming
// the bulb starts on. Exactly duration/interval toggle writes are issued; if
// the final toggle leaves the bulb off a single restoring power-on follows,
// so the effect always ends on.
func (r *Runner) Flash(ctx context.Context, duration, interval time.Duration) error {
	if interval <= 0 {
		interval = flashInterval
	}
	toggles := int(duration / interval)
	log.Info().Dur("duration", duration).Dur("interval", interval).Int("toggles", toggles).Msg("Starting flash")

	on := true
	for i := 0; i < toggles; i++ {
		on = !on
		if err := r.w.SetPower(ctx, on); err != nil {
			return err
		}
		if err := r.sleep(ctx, interval); err != nil {
			// Cancelled mid-flash: leave the bulb on.
			if !on {
				r.w.SetPower(context.Background(), true)
			}
			return err
		}
	}
	if !on {
		return r.w.SetPower(ctx, true)
	}
	return nil
}

// Alarm turns the bulb to full brightness in the given colour and runs the
// style loop. duration 0 means run until the context is cancelled. The bulb
// is restored to on at full brightness when the loop ends, cancelled or not.
func (r *Runner) Alarm(ctx context.Context, colour bulb.XY, style Style, duration time.Duration) error {
	log.Info().Str("style", string(style)).Dur("duration", duration).Msg("Starting alarm")
	if err := r.w.SetPower(ctx, true); err != nil {
		return err
	}
	if err := r.w.SetBrightness(ctx, bulb.BrightnessMax); err != nil {
		return err
	}
	if err := r.w.SetColourXY(ctx, colour.X, colour.Y); err != nil {
		return err
	}

	runCtx := ctx
	if duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if style == StyleBreathing {
		r.breathe(runCtx)
	} else {
		interval := flashInterval
		if style == StyleFast {
			interval = fastInterval
		}
		r.pulse(runCtx, interval)
	}

	// Best-effort restore, even when cancelled.
	restoreCtx := context.Background()
	r.w.SetPower(restoreCtx, true)
	r.w.SetBrightness(restoreCtx, bulb.BrightnessMax)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// pulse toggles power until ctx expires.
func (r *Runner) pulse(ctx context.Context, interval time.Duration) error {
	on := true
	for {
		on = !on
		if err := r.w.SetPower(ctx, on); err != nil {
			return err
		}
		if err := r.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// breathe ramps brightness down to the floor and back up until ctx expires.
func (r *Runner) breathe(ctx context.Context) error {
	for {
		for b := bulb.BrightnessMax; b > breatheFloor; b -= breatheStep {
			if err := r.w.SetBrightness(ctx, b); err != nil {
				return err
			}
			if err := r.sleep(ctx, breatheInterval); err != nil {
				return err
			}
		}
		for b := breatheFloor; b < bulb.BrightnessMax; b += breatheStep {
			if err := r.w.SetBrightness(ctx, b); err != nil {
				return err
			}
			if err := r.sleep(ctx, breatheInterval); err != nil {
				return err
			}
		}
	}
}
