package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultKeepWarmInterval = 25 * time.Second
	maxBackoff              = 30 * time.Second
)

// Pinger is anything with a cheap liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartKeepWarm launches a background goroutine that pings the collection
// backend so it stays warm between prompts. It returns immediately.
func StartKeepWarm(ctx context.Context, pinger Pinger, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = defaultKeepWarmInterval
	}
	log := logger.With().Str("component", "keepwarm").Logger()
	go func() {
		failures := 0
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if err := pinger.Ping(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Debug().Err(err).Int("failures", failures).Msg("health ping failed")
			} else {
				if failures > 0 {
					log.Info().Int("failures", failures).Msg("service reachable again")
				}
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
