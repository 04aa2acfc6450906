package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spacesedan/onlylikes/internal/clients"
	"github.com/spacesedan/onlylikes/internal/models"
)

type SettingsReader interface {
	Get(ctx context.Context) (models.Settings, error)
}

// ClientFactory builds the remote completer for a provider and credential.
type ClientFactory func(provider models.Provider, credential string) (clients.Completer, error)

func DefaultClientFactory(openAIModel, anthropicModel string) ClientFactory {
	return func(provider models.Provider, credential string) (clients.Completer, error) {
		switch provider {
		case models.ProviderOpenAI:
			return clients.NewOpenAIClient(credential, openAIModel, ""), nil
		case models.ProviderAnthropic:
			return clients.NewAnthropicClient(credential, anthropicModel, ""), nil
		default:
			return nil, fmt.Errorf("no remote client for provider %q", provider)
		}
	}
}

// Analyzer is the sentiment provider adapter. ScoreMany never fails: every
// error is converted into fallback or neutral scores.
type Analyzer struct {
	settings  SettingsReader
	newClient ClientFactory
	breakers  map[models.Provider]*gobreaker.CircuitBreaker
	healthy   *atomic.Bool
}

type Option func(*Analyzer)

func WithClientFactory(f ClientFactory) Option {
	return func(a *Analyzer) {
		a.newClient = f
	}
}

// WithHealthGate skips remote providers while healthy is false and scores
// with the fallback instead.
func WithHealthGate(healthy *atomic.Bool) Option {
	return func(a *Analyzer) {
		a.healthy = healthy
	}
}

func NewAnalyzer(settings SettingsReader, opts ...Option) *Analyzer {
	a := &Analyzer{
		settings:  settings,
		newClient: DefaultClientFactory("", ""),
		breakers: map[models.Provider]*gobreaker.CircuitBreaker{
			models.ProviderOpenAI:    newBreaker(models.ProviderOpenAI),
			models.ProviderAnthropic: newBreaker(models.ProviderAnthropic),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newBreaker(provider models.Provider) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("[Analyzer] Provider circuit breaker changed state",
				slog.String("provider", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

func (a *Analyzer) ScoreMany(ctx context.Context, texts []string) []float64 {
	if len(texts) == 0 {
		return []float64{}
	}

	s, err := a.settings.Get(ctx)
	if err != nil {
		slog.Warn("[Analyzer] Failed to read settings, using fallback scores",
			slog.String("error", err.Error()))
		return FallbackScores(texts)
	}
	s = s.Normalize()

	switch s.Provider {
	case models.ProviderVADER:
		scores := make([]float64, len(texts))
		for i, t := range texts {
			scores[i] = ScoreWithVADER(t)
		}
		return scores
	case models.ProviderOpenAI, models.ProviderAnthropic:
		if s.Credential == "" {
			slog.Debug("[Analyzer] No credential configured, using fallback scores",
				slog.String("provider", string(s.Provider)))
			return FallbackScores(texts)
		}
		return a.scoreRemote(ctx, s, texts)
	default:
		return FallbackScores(texts)
	}
}

func (a *Analyzer) scoreRemote(ctx context.Context, s models.Settings, texts []string) []float64 {
	if a.healthy != nil && !a.healthy.Load() {
		slog.Debug("[Analyzer] Providers unhealthy, using fallback scores",
			slog.String("provider", string(s.Provider)))
		return FallbackScores(texts)
	}

	start := time.Now()
	client, err := a.newClient(s.Provider, s.Credential)
	if err != nil {
		slog.Error("[Analyzer] Failed to build provider client",
			slog.String("provider", string(s.Provider)),
			slog.String("error", err.Error()))
		return FallbackScores(texts)
	}

	raw, err := a.breakers[s.Provider].Execute(func() (interface{}, error) {
		return client.Complete(ctx, SystemPrompt, BuildPrompt(texts))
	})
	if err != nil {
		slog.Warn("[Analyzer] Provider call failed, using fallback scores",
			slog.String("provider", string(s.Provider)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return FallbackScores(texts)
	}

	scores, ok := ParseScores(raw.(string), len(texts))
	if !ok {
		slog.Warn("[Analyzer] Provider answer did not line up with the batch, using neutral scores",
			slog.String("provider", string(s.Provider)),
			slog.Int("batch_size", len(texts)))
	}

	slog.Debug("[Analyzer] Batch scored",
		slog.String("provider", string(s.Provider)),
		slog.Int("batch_size", len(texts)),
		slog.Duration("elapsed", time.Since(start)))
	return scores
}

// BreakerStates reports the state of every remote provider breaker.
func (a *Analyzer) BreakerStates() map[models.Provider]gobreaker.State {
	states := make(map[models.Provider]gobreaker.State, len(a.breakers))
	for p, cb := range a.breakers {
		states[p] = cb.State()
	}
	return states
}
