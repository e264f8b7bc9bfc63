package actions

import (
	"context"
	"fmt"
	"time"

	"huebctl/internal/effect"
	"huebctl/internal/preset"
)

// Defaults for effect arguments left unset by the caller.
const (
	DefaultFadeDuration  = 15 * time.Minute
	DefaultFlashDuration = time.Minute
	DefaultFlashInterval = 500 * time.Millisecond
	DefaultAlarmColour   = "red"
	DefaultAlarmStyle    = string(effect.StyleFlash)
)

// RegisterBulbEffects wires the standard effects (fade_in, fade_out, alarm,
// flash) to the runner.
func RegisterBulbEffects(r *Registry, runner *effect.Runner) error {
	if err := r.RegisterFunc("fade_in", func(ctx context.Context, args map[string]any) error {
		return runner.Sunrise(ctx, durationArg(args, "duration", DefaultFadeDuration))
	}); err != nil {
		return err
	}

	if err := r.RegisterFunc("fade_out", func(ctx context.Context, args map[string]any) error {
		return runner.Sundown(ctx, durationArg(args, "duration", DefaultFadeDuration))
	}); err != nil {
		return err
	}

	if err := r.RegisterFunc("alarm", func(ctx context.Context, args map[string]any) error {
		colour, err := preset.Resolve(stringArg(args, "colour", DefaultAlarmColour))
		if err != nil {
			return err
		}
		style, err := effect.ParseStyle(stringArg(args, "style", DefaultAlarmStyle))
		if err != nil {
			return err
		}
		return runner.Alarm(ctx, colour, style, durationArg(args, "duration", 0))
	}); err != nil {
		return err
	}

	return r.RegisterFunc("flash", func(ctx context.Context, args map[string]any) error {
		return runner.Flash(ctx,
			durationArg(args, "duration", DefaultFlashDuration),
			durationArg(args, "interval", DefaultFlashInterval))
	})
}

// durationArg reads a duration argument. Accepts time.Duration or a Go
// duration string (the form stored in program JSON).
func durationArg(args map[string]any, key string, def time.Duration) time.Duration {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	case float64:
		// Lua numbers arrive as float64 seconds.
		return time.Duration(d * float64(time.Second))
	}
	return def
}

func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// ArgString renders args for display in history listings.
func ArgString(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	out := ""
	for k, v := range args {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, v)
	}
	return out
}
