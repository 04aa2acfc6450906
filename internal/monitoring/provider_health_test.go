package monitoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/spacesedan/onlylikes/internal/models"
)

type staticStates map[models.Provider]gobreaker.State

func (s staticStates) BreakerStates() map[models.Provider]gobreaker.State {
	return s
}

func TestCheckProviders(t *testing.T) {
	tests := []struct {
		name   string
		states staticStates
		want   bool
	}{
		{"all closed", staticStates{models.ProviderOpenAI: gobreaker.StateClosed, models.ProviderAnthropic: gobreaker.StateClosed}, true},
		{"half open", staticStates{models.ProviderOpenAI: gobreaker.StateHalfOpen}, true},
		{"one open", staticStates{models.ProviderOpenAI: gobreaker.StateClosed, models.ProviderAnthropic: gobreaker.StateOpen}, false},
		{"none", staticStates{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckProviders(tt.states); got != tt.want {
				t.Errorf("CheckProviders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonitorProviderHealthUpdatesFlag(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitorProviderHealth(ctx, staticStates{models.ProviderOpenAI: gobreaker.StateOpen}, &healthy, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for healthy.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if healthy.Load() {
		t.Fatal("healthy flag not cleared for an open breaker")
	}
}
