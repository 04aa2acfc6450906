package content

import (
	"context"
	"fmt"

	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/models"
)

// RemoteScorer scores batches through the background service.
type RemoteScorer struct {
	Client *bridge.Client
}

func (s RemoteScorer) ScoreMany(ctx context.Context, texts []string) ([]float64, error) {
	resp, err := bridge.Invoke[models.AnalyzeCommentsResponse](ctx, s.Client,
		bridge.ActionAnalyzeComments, models.AnalyzeCommentsRequest{Comments: texts})
	if err != nil {
		return nil, fmt.Errorf("analyze %d comments: %w", len(texts), err)
	}
	return resp.Sentiments, nil
}

// RemoteThresholds reads the user's threshold through the background service.
type RemoteThresholds struct {
	Client *bridge.Client
}

func (t RemoteThresholds) Threshold(ctx context.Context) (float64, error) {
	resp, err := bridge.Invoke[models.ThresholdResponse](ctx, t.Client, bridge.ActionGetUserThreshold, nil)
	if err != nil {
		return models.DefaultThreshold, err
	}
	return resp.Threshold, nil
}
