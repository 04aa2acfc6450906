// Package pipeline scores comments in fixed-size batches and hides the ones
// that fall below the user's threshold.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/utils"
)

const DEFAULT_BATCH_DELAY = time.Second

// BatchScorer returns one score per text, in order.
type BatchScorer interface {
	ScoreMany(ctx context.Context, texts []string) ([]float64, error)
}

type ScorerFunc func(ctx context.Context, texts []string) ([]float64, error)

func (f ScorerFunc) ScoreMany(ctx context.Context, texts []string) ([]float64, error) {
	return f(ctx, texts)
}

type ThresholdSource interface {
	Threshold(ctx context.Context) (float64, error)
}

type FixedThreshold float64

func (t FixedThreshold) Threshold(context.Context) (float64, error) {
	return float64(t), nil
}

// Result is the outcome for a single comment. Sentiment stays nil when the
// batch could not be scored.
type Result struct {
	Comment models.Comment
	Hidden  bool
}

type Pipeline struct {
	scorer     BatchScorer
	thresholds ThresholdSource
	marker     Marker

	batchSize  int
	batchDelay time.Duration
	veil       bool

	running chan struct{}
}

type Option func(*Pipeline)

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithBatchDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.batchDelay = d
		}
	}
}

// WithVeil hides every batch before it is scored and reveals the comments
// that pass.
func WithVeil() Option {
	return func(p *Pipeline) {
		p.veil = true
	}
}

func WithMarker(m Marker) Option {
	return func(p *Pipeline) {
		p.marker = m
	}
}

func New(scorer BatchScorer, thresholds ThresholdSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		scorer:     scorer,
		thresholds: thresholds,
		marker:     NewMemoryMarker(),
		batchSize:  utils.BATCH_SIZE,
		batchDelay: DEFAULT_BATCH_DELAY,
		running:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run filters comments that this pipeline has not seen before. Only one run
// is active at a time; later calls wait their turn. Comments are returned in
// input order, minus the ones already claimed.
func (p *Pipeline) Run(ctx context.Context, comments []models.Comment) ([]Result, error) {
	select {
	case p.running <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.running }()

	fresh := p.claim(ctx, comments)
	if len(fresh) == 0 {
		return nil, nil
	}

	queue := utils.NewBatchQueue(fresh, p.batchSize)
	results := make([]Result, 0, len(fresh))
	start := time.Now()

	for first := true; queue.HasData(); first = false {
		if !first {
			if err := utils.Sleep(ctx, p.batchDelay); err != nil {
				return results, err
			}
		}

		batch, _ := queue.Next()
		queue.LogBatchProcessing("comments", batch)
		results = append(results, p.filterBatch(ctx, batch)...)
	}

	slog.Info("[Pipeline] Run complete",
		slog.Int("comments", len(results)),
		slog.Int("hidden", countHidden(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

func (p *Pipeline) claim(ctx context.Context, comments []models.Comment) []models.Comment {
	fresh := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		key := commentKey(c)
		ok, err := p.marker.Claim(ctx, key)
		if err != nil {
			slog.Warn("[Pipeline] Failed to claim comment, filtering it anyway",
				slog.String("key", key),
				slog.String("error", err.Error()))
			ok = true
		}
		if ok {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func (p *Pipeline) filterBatch(ctx context.Context, batch []models.Comment) []Result {
	if p.veil {
		for _, c := range batch {
			setHidden(c, true)
		}
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	scores, err := p.scorer.ScoreMany(ctx, texts)
	if err == nil && len(scores) != len(batch) {
		err = fmt.Errorf("scorer returned %d scores for %d comments", len(scores), len(batch))
	}
	if err != nil {
		slog.Error("[Pipeline] Batch scoring failed, hiding batch",
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))
		return hideAll(batch)
	}

	threshold, err := p.thresholds.Threshold(ctx)
	if err != nil {
		slog.Warn("[Pipeline] Failed to read threshold, using default",
			slog.String("error", err.Error()))
		threshold = models.DefaultThreshold
	}

	results := make([]Result, len(batch))
	for i, c := range batch {
		hidden := scores[i] < threshold
		setHidden(c, hidden)
		results[i] = Result{Comment: c.Scored(scores[i]), Hidden: hidden}
	}
	return results
}

func hideAll(batch []models.Comment) []Result {
	results := make([]Result, len(batch))
	for i, c := range batch {
		setHidden(c, true)
		results[i] = Result{Comment: c, Hidden: true}
	}
	return results
}

func setHidden(c models.Comment, hidden bool) {
	if c.Handle == nil {
		return
	}
	if !c.Handle.SetHidden(hidden) {
		slog.Debug("[Pipeline] Comment node is gone",
			slog.String("id", c.ID))
	}
}

func commentKey(c models.Comment) string {
	if c.Handle != nil {
		return c.Handle.Key()
	}
	return c.ID
}

func countHidden(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Hidden {
			n++
		}
	}
	return n
}
