// Package background answers scoring and settings requests for every
// content relay.
package background

import (
	"context"
	"log/slog"

	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/settings"
)

type Scorer interface {
	ScoreMany(ctx context.Context, texts []string) []float64
}

type Service struct {
	scorer     Scorer
	thresholds settings.Thresholds
	server     *bridge.Server
}

// NewService registers the background actions on t. Requests from any source
// are served; each response goes back to its requester only.
func NewService(t bridge.Transport, scorer Scorer, store settings.Store) *Service {
	s := &Service{
		scorer:     scorer,
		thresholds: settings.Thresholds{Store: store},
		server:     bridge.NewServer(t, bridge.AnySource),
	}

	s.server.Handle(bridge.ActionAnalyzeComments, bridge.Handler(s.analyzeComments))
	s.server.Handle(bridge.ActionGetUserThreshold, bridge.Handler(s.getUserThreshold))
	s.server.Handle(bridge.ActionLog, bridge.Handler(s.log))
	return s
}

func (s *Service) Start(ctx context.Context) error {
	slog.Info("[Background] Service started")
	return s.server.Start(ctx)
}

func (s *Service) Wait() {
	s.server.Wait()
}

func (s *Service) analyzeComments(ctx context.Context, req models.AnalyzeCommentsRequest) (models.AnalyzeCommentsResponse, error) {
	slog.Debug("[Background] Analyzing comments",
		slog.Int("count", len(req.Comments)))
	return models.AnalyzeCommentsResponse{Sentiments: s.scorer.ScoreMany(ctx, req.Comments)}, nil
}

func (s *Service) getUserThreshold(ctx context.Context, _ struct{}) (models.ThresholdResponse, error) {
	threshold, err := s.thresholds.Threshold(ctx)
	if err != nil {
		slog.Warn("[Background] Failed to read settings, using default threshold",
			slog.String("error", err.Error()))
	}
	return models.ThresholdResponse{Threshold: threshold}, nil
}

func (s *Service) log(_ context.Context, req models.LogRequest) (any, error) {
	slog.Info("[Background] " + req.Message)
	return nil, nil
}
