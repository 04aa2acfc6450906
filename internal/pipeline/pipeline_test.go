package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spacesedan/onlylikes/internal/models"
	"github.com/spacesedan/onlylikes/internal/sentiment"
)

type fakeHandle struct {
	key      string
	mu       sync.Mutex
	hidden   bool
	history  []bool
	detached bool
}

func (h *fakeHandle) Key() string { return h.key }

func (h *fakeHandle) SetHidden(hidden bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return false
	}
	h.hidden = hidden
	h.history = append(h.history, hidden)
	return true
}

func (h *fakeHandle) isHidden() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hidden
}

func makeComments(texts ...string) ([]models.Comment, []*fakeHandle) {
	comments := make([]models.Comment, len(texts))
	handles := make([]*fakeHandle, len(texts))
	for i, text := range texts {
		h := &fakeHandle{key: fmt.Sprintf("c%d", i)}
		handles[i] = h
		comments[i] = models.Comment{ID: h.key, Text: text, Handle: h}
	}
	return comments, handles
}

type recordingScorer struct {
	mu    sync.Mutex
	calls [][]string
	times []time.Time
	score func([]string) ([]float64, error)
}

func (s *recordingScorer) ScoreMany(_ context.Context, texts []string) ([]float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), texts...))
	s.times = append(s.times, time.Now())
	s.mu.Unlock()
	if s.score == nil {
		return sentiment.FallbackScores(texts), nil
	}
	return s.score(texts)
}

type failingThresholds struct{}

func (failingThresholds) Threshold(context.Context) (float64, error) {
	return 0, errors.New("store unavailable")
}

func TestRunEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name       string
		threshold  float64
		texts      []string
		wantScores []float64
		wantHidden []bool
	}{
		{
			name:       "cautious boundary is inclusive",
			threshold:  models.CautiousThreshold,
			texts:      []string{"ab", "abc"},
			wantScores: []float64{0.7, 0.3},
			wantHidden: []bool{false, false},
		},
		{
			name:       "aggressive hides odd length",
			threshold:  models.AggressiveThreshold,
			texts:      []string{"abcde"},
			wantScores: []float64{0.3},
			wantHidden: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comments, handles := makeComments(tt.texts...)
			p := New(&recordingScorer{}, FixedThreshold(tt.threshold), WithBatchDelay(0))

			results, err := p.Run(context.Background(), comments)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(results) != len(tt.texts) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.texts))
			}
			for i, r := range results {
				if r.Comment.Sentiment == nil || *r.Comment.Sentiment != tt.wantScores[i] {
					t.Errorf("result[%d] sentiment = %v, want %v", i, r.Comment.Sentiment, tt.wantScores[i])
				}
				if r.Hidden != tt.wantHidden[i] || handles[i].isHidden() != tt.wantHidden[i] {
					t.Errorf("result[%d] hidden = %v (handle %v), want %v",
						i, r.Hidden, handles[i].isHidden(), tt.wantHidden[i])
				}
			}
		})
	}
}

func TestRunBatchesInOrderWithDelay(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("comment %02d", i)
	}
	comments, _ := makeComments(texts...)

	delay := 20 * time.Millisecond
	scorer := &recordingScorer{}
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(delay))

	results, err := p.Run(context.Background(), comments)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 25 {
		t.Fatalf("got %d results, want 25", len(results))
	}

	wantSizes := []int{10, 10, 5}
	if len(scorer.calls) != len(wantSizes) {
		t.Fatalf("scorer called %d times, want %d", len(scorer.calls), len(wantSizes))
	}

	next := 0
	for i, call := range scorer.calls {
		if len(call) != wantSizes[i] {
			t.Errorf("call %d size = %d, want %d", i, len(call), wantSizes[i])
		}
		for _, text := range call {
			if text != texts[next] {
				t.Fatalf("call %d got %q, want %q", i, text, texts[next])
			}
			next++
		}
	}

	for i := 1; i < len(scorer.times); i++ {
		if gap := scorer.times[i].Sub(scorer.times[i-1]); gap < delay {
			t.Errorf("gap before call %d = %v, want >= %v", i, gap, delay)
		}
	}
}

func TestRunSkipsDelayAfterLastBatch(t *testing.T) {
	comments, _ := makeComments("a", "b")
	p := New(&recordingScorer{}, FixedThreshold(0.5), WithBatchDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.Run(ctx, comments); err != nil {
		t.Fatalf("Run with a single batch waited on the delay: %v", err)
	}
}

func TestRunHidesBatchOnScorerFailure(t *testing.T) {
	tests := []struct {
		name  string
		score func([]string) ([]float64, error)
	}{
		{"error", func([]string) ([]float64, error) { return nil, errors.New("provider down") }},
		{"length mismatch", func(texts []string) ([]float64, error) { return make([]float64, len(texts)-1), nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comments, handles := makeComments("ab", "cd", "ef")
			p := New(&recordingScorer{score: tt.score}, FixedThreshold(0), WithBatchDelay(0))

			results, err := p.Run(context.Background(), comments)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			for i, r := range results {
				if !r.Hidden || !handles[i].isHidden() {
					t.Errorf("comment %d not hidden after failure", i)
				}
				if r.Comment.Sentiment != nil {
					t.Errorf("comment %d got sentiment %v after failure", i, *r.Comment.Sentiment)
				}
			}
		})
	}
}

func TestRunContinuesAfterFailedBatch(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "ab"
	}
	comments, handles := makeComments(texts...)

	calls := 0
	scorer := &recordingScorer{score: func(texts []string) ([]float64, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return sentiment.FallbackScores(texts), nil
	}}
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(0))

	if _, err := p.Run(context.Background(), comments); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, h := range handles {
		want := i < 10
		if h.isHidden() != want {
			t.Errorf("handle %d hidden = %v, want %v", i, h.isHidden(), want)
		}
	}
}

func TestRunThresholdErrorUsesDefault(t *testing.T) {
	// 0.3 < 0.5 hides, 0.7 stays.
	comments, handles := makeComments("abc", "ab")
	p := New(&recordingScorer{}, failingThresholds{}, WithBatchDelay(0))

	if _, err := p.Run(context.Background(), comments); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !handles[0].isHidden() || handles[1].isHidden() {
		t.Errorf("hidden = [%v %v], want [true false]", handles[0].isHidden(), handles[1].isHidden())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	comments, _ := makeComments("ab", "abc")
	scorer := &recordingScorer{}
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(0))

	if _, err := p.Run(context.Background(), comments); err != nil {
		t.Fatal(err)
	}
	results, err := p.Run(context.Background(), comments)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("second run returned %d results, want 0", len(results))
	}
	if len(scorer.calls) != 1 {
		t.Errorf("scorer called %d times, want 1", len(scorer.calls))
	}
}

func TestRunDropsDuplicatesWithinRun(t *testing.T) {
	h := &fakeHandle{key: "same"}
	comments := []models.Comment{
		{ID: "same", Text: "ab", Handle: h},
		{ID: "same", Text: "ab", Handle: h},
	}
	scorer := &recordingScorer{}
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(0))

	results, err := p.Run(context.Background(), comments)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(scorer.calls[0]) != 1 {
		t.Errorf("results = %d, first call = %d texts; want 1 and 1", len(results), len(scorer.calls[0]))
	}
}

func TestRunEmptyInput(t *testing.T) {
	scorer := &recordingScorer{}
	p := New(scorer, FixedThreshold(0.5))

	results, err := p.Run(context.Background(), nil)
	if err != nil || len(results) != 0 {
		t.Fatalf("Run(nil) = %v, %v", results, err)
	}
	if len(scorer.calls) != 0 {
		t.Errorf("scorer called %d times for empty input", len(scorer.calls))
	}
}

func TestRunVeilHidesBeforeScoring(t *testing.T) {
	comments, handles := makeComments("ab")
	scorer := &recordingScorer{score: func(texts []string) ([]float64, error) {
		if !handles[0].isHidden() {
			t.Error("comment visible while being scored")
		}
		return sentiment.FallbackScores(texts), nil
	}}
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(0), WithVeil())

	if _, err := p.Run(context.Background(), comments); err != nil {
		t.Fatal(err)
	}
	if handles[0].isHidden() {
		t.Error("passing comment still hidden after run")
	}
}

func TestRunToleratesDetachedNodes(t *testing.T) {
	comments, handles := makeComments("abc")
	handles[0].detached = true
	p := New(&recordingScorer{}, FixedThreshold(0.5), WithBatchDelay(0))

	results, err := p.Run(context.Background(), comments)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].Hidden {
		t.Errorf("results = %+v, want one hidden result", results)
	}
}

func TestRunsAreSerialized(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	scorer := ScorerFunc(func(_ context.Context, texts []string) ([]float64, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return sentiment.FallbackScores(texts), nil
	})
	p := New(scorer, FixedThreshold(0.5), WithBatchDelay(0))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := &fakeHandle{key: fmt.Sprintf("run%d", i)}
			if _, err := p.Run(context.Background(), []models.Comment{{ID: h.key, Text: "ab", Handle: h}}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent scorer calls = %d, want 1", maxActive)
	}
}

func TestMemoryMarkerClaimsOnce(t *testing.T) {
	m := NewMemoryMarker()
	ctx := context.Background()

	first, _ := m.Claim(ctx, "k")
	second, _ := m.Claim(ctx, "k")
	if !first || second {
		t.Errorf("Claim = %v, %v; want true, false", first, second)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
