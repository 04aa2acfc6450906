package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/spacesedan/onlylikes/internal/models"
)

const HEALTHCHECK_TIMER = 15

type BreakerReporter interface {
	BreakerStates() map[models.Provider]gobreaker.State
}

// MonitorProviderHealth samples the provider breakers until ctx ends.
// healthy is false while any breaker is open.
func MonitorProviderHealth(ctx context.Context, reporter BreakerReporter, healthy *atomic.Bool) {
	monitorProviderHealth(ctx, reporter, healthy, time.Second*HEALTHCHECK_TIMER)
}

func monitorProviderHealth(ctx context.Context, reporter BreakerReporter, healthy *atomic.Bool, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy.Store(CheckProviders(reporter))
		}
	}
}

// CheckProviders logs every open breaker and reports whether none is open.
func CheckProviders(reporter BreakerReporter) bool {
	isHealthy := true
	for provider, state := range reporter.BreakerStates() {
		if state == gobreaker.StateOpen {
			isHealthy = false
			slog.Warn("[HealthCheck] Provider is unhealthy",
				slog.String("provider", string(provider)),
				slog.String("breaker", state.String()))
		}
	}
	return isHealthy
}
