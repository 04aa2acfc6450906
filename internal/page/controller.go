// Package page drives filtering from the page side: it finds out whether the
// signed-in user wrote the post, asks the relay to filter its comments and
// keeps doing so for comments that show up later.
package page

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spacesedan/onlylikes/internal/bridge"
	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/pipeline"
	"github.com/spacesedan/onlylikes/internal/utils"
)

const (
	USER_RETRY_ATTEMPTS = 3
	USER_RETRY_DELAY    = time.Second
	PENDING_BUFFER      = 64
	SETTLE_POLL         = 10 * time.Millisecond
)

// Reader is what the controller needs from the page.
type Reader interface {
	UserName() (string, bool)
	IsUserPost(user string) bool
	Extract(ctx context.Context) ([]models.Comment, error)
	ObserveNew(fn func([]models.Comment)) (stop func())
}

type Controller struct {
	page   Reader
	client *bridge.Client

	retryAttempts int
	retryDelay    time.Duration

	batchSize  int
	batchDelay time.Duration

	// busy counts comment sets handed to Run that are not filtered yet.
	busy      atomic.Int64
	ready     chan struct{}
	readyOnce sync.Once
}

type Option func(*Controller)

func WithUserRetry(attempts int, delay time.Duration) Option {
	return func(c *Controller) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithBatchPlan tells the controller how the relay paces its batches, so a
// filter request is given time for every batch to finish.
func WithBatchPlan(size int, delay time.Duration) Option {
	return func(c *Controller) {
		if size > 0 {
			c.batchSize = size
		}
		if delay >= 0 {
			c.batchDelay = delay
		}
	}
}

func NewController(page Reader, client *bridge.Client, opts ...Option) *Controller {
	c := &Controller{
		page:          page,
		client:        client,
		retryAttempts: USER_RETRY_ATTEMPTS,
		retryDelay:    USER_RETRY_DELAY,
		batchSize:     utils.BATCH_SIZE,
		batchDelay:    pipeline.DEFAULT_BATCH_DELAY,
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FilterPage filters the comments currently on the page. It reports false,
// and leaves the page untouched, when the user cannot be found or did not
// write the post.
func (c *Controller) FilterPage(ctx context.Context) ([]models.FilteredComment, bool, error) {
	if !c.ownsPost(ctx) {
		return nil, false, ctx.Err()
	}
	filtered, err := c.filterExisting(ctx)
	return filtered, true, err
}

// Run filters the page and then every batch of comments inserted later,
// until ctx ends. The watcher is in place before the first extraction so no
// insertion is missed; comments seen twice are dropped by the relay.
func (c *Controller) Run(ctx context.Context) error {
	defer c.markReady()
	if !c.ownsPost(ctx) {
		return nil
	}

	pending := make(chan []models.Comment, PENDING_BUFFER)
	stop := c.page.ObserveNew(func(comments []models.Comment) {
		c.busy.Add(1)
		select {
		case pending <- comments:
		case <-ctx.Done():
			c.busy.Add(-1)
		}
	})
	defer stop()

	c.busy.Add(1)
	c.markReady()
	if _, err := c.filterExisting(ctx); err != nil && ctx.Err() == nil {
		slog.Error("[Page] Initial filtering failed",
			slog.String("error", err.Error()))
	}
	c.busy.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case comments := <-pending:
			if _, err := c.filter(ctx, comments); err != nil && ctx.Err() == nil {
				slog.Error("[Page] Failed to filter new comments",
					slog.Int("count", len(comments)),
					slog.String("error", err.Error()))
			}
			c.busy.Add(-1)
		}
	}
}

// Ready is closed once Run watches the page, or has decided to leave it
// alone.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Settle waits until Run is ready and every comment it has seen so far is
// filtered.
func (c *Controller) Settle(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	for c.busy.Load() > 0 {
		if err := utils.Sleep(ctx, SETTLE_POLL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// ownsPost fails open: any doubt about the author means no filtering.
func (c *Controller) ownsPost(ctx context.Context) bool {
	user, ok := utils.Retry(ctx, c.retryAttempts, c.retryDelay, c.page.UserName)
	if !ok {
		slog.Info("[Page] Could not detect user name, leaving comments alone",
			slog.Int("attempts", c.retryAttempts))
		return false
	}

	if !c.page.IsUserPost(user) {
		slog.Info("[Page] Post is not by the user",
			slog.String("user", user))
		return false
	}
	return true
}

func (c *Controller) filterExisting(ctx context.Context) ([]models.FilteredComment, error) {
	comments, err := c.page.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract comments: %w", err)
	}
	if len(comments) == 0 {
		slog.Info("[Page] No comments found to filter")
		return nil, nil
	}
	return c.filter(ctx, comments)
}

func (c *Controller) filter(ctx context.Context, comments []models.Comment) ([]models.FilteredComment, error) {
	req := models.FilterCommentsRequest{Comments: make([]models.CommentText, len(comments))}
	for i, comment := range comments {
		req.Comments[i] = models.CommentText{ID: comment.ID, Text: comment.Text}
	}

	filtered, err := bridge.InvokeWithin[[]models.FilteredComment](ctx, c.client, c.filterTimeout(len(comments)), bridge.ActionFilterComments, req)
	if err != nil {
		return nil, err
	}

	hidden := 0
	for _, f := range filtered {
		if f.Hidden {
			hidden++
		}
	}
	if err := c.client.Notify(ctx, bridge.ActionLog, models.LogRequest{
		Message: fmt.Sprintf("Filtered %d comments, %d hidden", len(filtered), hidden),
	}); err != nil {
		slog.Debug("[Page] Failed to post log", slog.String("error", err.Error()))
	}
	return filtered, nil
}

// filterTimeout covers one background round trip and one pause per batch on
// top of the request's own timeout.
func (c *Controller) filterTimeout(n int) time.Duration {
	timeout := c.client.Timeout()
	batches := (n + c.batchSize - 1) / c.batchSize
	return timeout + time.Duration(batches)*(c.batchDelay+timeout)
}
