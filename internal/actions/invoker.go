package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"huebctl/internal/history"
)

// Invoker executes effects with run recording and occurrence deduplication.
// The ledger may be nil, in which case runs are neither recorded nor deduped.
type Invoker struct {
	registry *Registry
	ledger   *history.Ledger
}

// NewInvoker creates an invoker.
func NewInvoker(registry *Registry, ledger *history.Ledger) *Invoker {
	return &Invoker{registry: registry, ledger: ledger}
}

// Has reports whether an effect is registered.
func (i *Invoker) Has(name string) bool {
	_, exists := i.registry.Get(name)
	return exists
}

// Invoke runs the named effect. A non-empty occurrenceKey deduplicates: if a
// run with that key already completed, the call is a no-op. Manual
// invocations pass an empty key.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any, occurrenceKey string) error {
	effect, exists := i.registry.Get(name)
	if !exists {
		return fmt.Errorf("effect %q not found", name)
	}

	if occurrenceKey != "" && i.ledger != nil && i.ledger.HasCompleted(occurrenceKey) {
		log.Info().
			Str("effect", name).
			Str("occurrence", occurrenceKey).
			Msg("Occurrence already completed, skipping")
		return nil
	}

	var runID string
	if i.ledger != nil {
		var err error
		runID, err = i.ledger.Begin(name, args, occurrenceKey)
		if err != nil {
			log.Error().Err(err).Str("effect", name).Msg("Failed to record run start")
		}
	}

	log.Debug().Str("effect", name).Interface("args", args).Msg("Executing effect")
	err := effect.Execute(ctx, args)

	if runID != "" {
		if err != nil {
			if lerr := i.ledger.Fail(runID, err); lerr != nil {
				log.Error().Err(lerr).Msg("Failed to record run failure")
			}
		} else {
			if lerr := i.ledger.Complete(runID); lerr != nil {
				log.Error().Err(lerr).Msg("Failed to record run completion")
			}
		}
	}

	return err
}
