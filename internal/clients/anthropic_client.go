package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spacesedan/onlylikes/internal/models"
)

const (
	ANTHROPIC_COMPLETION_ENDPOINT = "https://api.anthropic.com/v1/complete"
	ANTHROPIC_API_VERSION         = "2023-06-01"
	DefaultAnthropicModel         = "claude-2.1"

	anthropicRequestTimeout = 60 * time.Second
	anthropicMaxTokens      = 512
)

type AnthropicClient struct {
	Client   *http.Client
	APIKey   string
	Model    string
	Endpoint string
}

func NewAnthropicClient(apiKey, model, endpoint string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if endpoint == "" {
		endpoint = ANTHROPIC_COMPLETION_ENDPOINT
	}
	return &AnthropicClient{
		Client: &http.Client{
			Timeout: anthropicRequestTimeout,
		},
		APIKey:   apiKey,
		Model:    model,
		Endpoint: endpoint,
	}
}

// Complete folds both prompts into the single prompt string of the
// text-completion API.
func (a *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	input := models.AnthropicCompletionRequest{
		Model:             a.Model,
		Prompt:            fmt.Sprintf("\n\nHuman: %s\n\n%s\n\nAssistant:", systemPrompt, userPrompt),
		MaxTokensToSample: anthropicMaxTokens,
		Temperature:       0,
	}

	var result models.AnthropicCompletionResponse
	start := time.Now()
	if err := a.postJSON(ctx, input, &result); err != nil {
		slog.Error("[AnthropicClient] Completion request failed",
			slog.Duration("elapsed", time.Since(start)))
		return "", err
	}

	if strings.TrimSpace(result.Completion) == "" {
		return "", ErrEmptyCompletion
	}

	slog.Debug("[AnthropicClient] Completion request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result.Completion, nil
}

// DoWithRetry retries transport errors and 5xx answers with exponential
// backoff. The request body must be rebuildable through GetBody.
func (a *AnthropicClient) DoWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := INITIAL_BACKOFF

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			req.Body = body
		}

		resp, err = a.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[AnthropicClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if err == nil {
		err = fmt.Errorf("giving up after %d attempts: %s", MAX_RETRIES, errMsg(nil, resp))
	}
	return nil, err
}

func (a *AnthropicClient) postJSON(ctx context.Context, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("X-API-Key", a.APIKey)
	req.Header.Set("Anthropic-Version", ANTHROPIC_API_VERSION)

	resp, err := a.DoWithRetry(req)
	if err != nil {
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr models.AnthropicErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("anthropic api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("anthropic api error: status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[AnthropicClient] Failed to unmarshal response",
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
