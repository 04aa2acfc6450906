package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spacesedan/onlylikes/internal/models"
)

func TestAnthropicClientComplete(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}

		var req models.AnthropicCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !strings.HasPrefix(req.Prompt, "\n\nHuman:") || !strings.HasSuffix(req.Prompt, "Assistant:") {
			t.Errorf("unexpected prompt framing: %q", req.Prompt)
		}
		if !strings.Contains(req.Prompt, "1. great post") {
			t.Errorf("prompt does not carry the user message: %q", req.Prompt)
		}

		json.NewEncoder(w).Encode(models.AnthropicCompletionResponse{Completion: " 0.9"})
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "", srv.URL)
	got, err := c.Complete(context.Background(), "score these", "1. great post")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != " 0.9" {
		t.Errorf("Complete() = %q, want %q", got, " 0.9")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestAnthropicClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(models.AnthropicCompletionResponse{Completion: "0.1"})
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "", srv.URL)
	got, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "0.1" {
		t.Errorf("Complete() = %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestAnthropicClientClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("bad", "", srv.URL)
	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("Complete() error = %v, want api error", err)
	}
}
