package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"huebctl/internal/program"
)

// EffectInvoker runs a named effect, recording the run in history. Satisfied
// by *actions.Invoker.
type EffectInvoker interface {
	Invoke(ctx context.Context, effect string, args map[string]any, occurrenceKey string) error
}

// Routine executes the steps of a saved program strictly in order: each step
// waits for its position (absolute time expression or relative delay), then
// runs its effect through the invoker.
type Routine struct {
	evaluator *Evaluator
	invoker   EffectInvoker
	misfire   MisfirePolicy
}

// NewRoutine creates a routine runner.
func NewRoutine(evaluator *Evaluator, invoker EffectInvoker, misfire MisfirePolicy) *Routine {
	if misfire == "" {
		misfire = MisfireRunNow
	}
	return &Routine{evaluator: evaluator, invoker: invoker, misfire: misfire}
}

// Run executes all steps. The first error aborts the remainder.
func (r *Routine) Run(ctx context.Context, steps []program.Step) error {
	log.Info().Int("steps", len(steps)).Msg("Running program")

	for i, step := range steps {
		log.Info().
			Int("step", i+1).
			Int("of", len(steps)).
			Str("effect", step.Effect).
			Msg("Program step")

		occurrenceKey := ""

		switch {
		case step.At != "":
			expr, err := ParseTimeExpr(step.At)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			if expr.IsAstronomical() && !r.evaluator.SupportsAstronomical() {
				return fmt.Errorf("step %d: %q requires configured astro coordinates", i+1, step.At)
			}

			now := time.Now()
			target, ok := r.evaluator.Evaluate(expr, now.In(r.evaluator.Timezone()))
			if !ok {
				return fmt.Errorf("step %d: cannot evaluate %q", i+1, step.At)
			}

			if !target.After(now) {
				if r.misfire == MisfireSkip {
					log.Warn().Str("at", step.At).Msg("Scheduled time passed, skipping step")
					continue
				}
				log.Warn().Str("at", step.At).Msg("Scheduled time passed, running now")
			} else {
				if err := WaitUntil(ctx, target); err != nil {
					return err
				}
			}
			occurrenceKey = NewOccurrence(step.Effect+"@"+step.At, target).Key

		case step.Delay > 0:
			target := time.Now().Add(step.Delay.Duration())
			if err := WaitUntil(ctx, target); err != nil {
				return err
			}
		}

		args := stepArgs(step)
		if err := r.invoker.Invoke(ctx, step.Effect, args, occurrenceKey); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Effect, err)
		}
	}

	log.Info().Msg("Program complete")
	return nil
}

// stepArgs converts a program step to effect arguments.
func stepArgs(step program.Step) map[string]any {
	args := make(map[string]any)
	if step.Duration != 0 {
		args["duration"] = step.Duration.Duration()
	}
	if step.Colour != "" {
		args["colour"] = step.Colour
	}
	if step.Style != "" {
		args["style"] = step.Style
	}
	if step.Interval != 0 {
		args["interval"] = step.Interval.Duration()
	}
	return args
}
