// Package content runs between the page and the background service. It owns
// the filter pipeline and answers page requests that touch the document.
package content

import (
	"context"
	"log/slog"

	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/extractor"
	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/pipeline"
)

type Relay struct {
	doc        *extractor.Document
	pipeline   *pipeline.Pipeline
	background *bridge.Client
	thresholds RemoteThresholds
	server     *bridge.Server
}

// NewRelay serves page requests posted on window by contextID. Scoring and
// settings go through background.
func NewRelay(doc *extractor.Document, window bridge.Transport, contextID string, background *bridge.Client, opts ...pipeline.Option) *Relay {
	thresholds := RemoteThresholds{Client: background}
	r := &Relay{
		doc:        doc,
		pipeline:   pipeline.New(RemoteScorer{Client: background}, thresholds, opts...),
		background: background,
		thresholds: thresholds,
		server:     bridge.NewServer(window, bridge.SameSource(contextID)),
	}

	r.server.Handle(bridge.ActionLog, bridge.Handler(r.log))
	r.server.Handle(bridge.ActionFilterComments, bridge.Handler(r.filterComments))
	r.server.Handle(bridge.ActionGetUserThreshold, bridge.Handler(r.getUserThreshold))
	r.server.Handle(bridge.ActionHideComment, bridge.Handler(r.setHidden(true)))
	r.server.Handle(bridge.ActionShowComment, bridge.Handler(r.setHidden(false)))
	return r
}

func (r *Relay) Start(ctx context.Context) error {
	return r.server.Start(ctx)
}

// Wait blocks until every request accepted so far has been answered.
func (r *Relay) Wait() {
	r.server.Wait()
}

func (r *Relay) log(_ context.Context, req models.LogRequest) (any, error) {
	slog.Info("[Page] " + req.Message)
	return nil, nil
}

func (r *Relay) filterComments(ctx context.Context, req models.FilterCommentsRequest) ([]models.FilteredComment, error) {
	comments := make([]models.Comment, 0, len(req.Comments))
	for _, c := range req.Comments {
		comment := models.Comment{ID: c.ID, Text: c.Text}
		if h, ok := r.doc.HandleByID(c.ID); ok {
			comment.Handle = h
		} else {
			slog.Debug("[Relay] Comment element not found",
				slog.String("id", c.ID))
		}
		comments = append(comments, comment)
	}

	results, err := r.pipeline.Run(ctx, comments)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.FilteredComment, len(results))
	for i, res := range results {
		filtered[i] = models.FilteredComment{
			ID:        res.Comment.ID,
			Sentiment: res.Comment.Sentiment,
			Hidden:    res.Hidden,
		}
	}
	return filtered, nil
}

// getUserThreshold never fails; an unreachable background means the
// default threshold.
func (r *Relay) getUserThreshold(ctx context.Context, _ struct{}) (models.ThresholdResponse, error) {
	threshold, err := r.thresholds.Threshold(ctx)
	if err != nil {
		slog.Warn("[Relay] Failed to get user threshold, using default",
			slog.String("error", err.Error()))
		threshold = models.DefaultThreshold
	}
	return models.ThresholdResponse{Threshold: threshold}, nil
}

func (r *Relay) setHidden(hidden bool) func(context.Context, models.CommentIDRequest) (any, error) {
	return func(_ context.Context, req models.CommentIDRequest) (any, error) {
		h, ok := r.doc.HandleByID(req.ID)
		if !ok || !h.SetHidden(hidden) {
			slog.Debug("[Relay] Comment element not found",
				slog.String("id", req.ID),
				slog.Bool("hidden", hidden))
		}
		return nil, nil
	}
}
