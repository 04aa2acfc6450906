package clients

import (
	"context"
	"time"
)

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 500 * time.Millisecond
	USER_AGENT      = "onlylikes-client/1.0 (+https://github.com/spacesedan/onlylikes)"
)

// Completer sends one prompt for a whole batch of comments and returns the
// model's raw text answer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
