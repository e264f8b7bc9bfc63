package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// countdownInterval spaces the "time remaining" log lines during a wait.
const countdownInterval = 30 * time.Second

// WaitUntil sleeps until the target time, logging the remaining time
// periodically. Returns ctx.Err() if cancelled first.
func WaitUntil(ctx context.Context, target time.Time) error {
	remaining := time.Until(target)
	if remaining <= 0 {
		return nil
	}

	log.Info().
		Time("target", target).
		Str("remaining", formatRemaining(remaining)).
		Msg("Waiting for scheduled time")

	ticker := time.NewTicker(countdownInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(remaining)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
			log.Info().
				Str("remaining", formatRemaining(time.Until(target))).
				Msg("Waiting")
		}
	}
}

// formatRemaining renders a countdown the way a person reads it: "2h 5m",
// "4m 30s".
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
