package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// SourcePolicy decides whether a request from source is served.
type SourcePolicy func(source string) bool

// SameSource only accepts requests posted by the given source.
func SameSource(source string) SourcePolicy {
	return func(s string) bool {
		return s == source
	}
}

// AnySource is for shared servers that answer many sources; responses are
// still addressed to the requesting source only.
func AnySource(string) bool {
	return true
}

type Server struct {
	transport Transport
	accept    SourcePolicy

	mu       sync.RWMutex
	handlers map[Action]HandlerFunc
	inflight sync.WaitGroup
}

func NewServer(t Transport, accept SourcePolicy) *Server {
	return &Server{
		transport: t,
		accept:    accept,
		handlers:  make(map[Action]HandlerFunc),
	}
}

func (s *Server) Handle(action Action, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[action] = h
}

func (s *Server) Start(ctx context.Context) error {
	return s.transport.Subscribe(ctx, func(msg Message) {
		s.dispatch(ctx, msg)
	})
}

// Wait blocks until every request handler started so far has answered.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) dispatch(ctx context.Context, msg Message) {
	if msg.Type != TypeRequest {
		return
	}
	if !s.accept(msg.Source) {
		slog.Warn("[Bridge] Rejected request from foreign source",
			slog.String("source", msg.Source),
			slog.String("action", string(msg.Action)))
		return
	}

	s.mu.RLock()
	h, ok := s.handlers[msg.Action]
	s.mu.RUnlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		resp := Message{Type: TypeResponse, ID: msg.ID, Source: msg.Source, Action: msg.Action}
		if !ok {
			resp.Error = fmt.Sprintf("%s: %s", ErrUnknownAction, msg.Action)
		} else if result, err := s.run(ctx, h, msg); err != nil {
			resp.Error = err.Error()
		} else if result != nil {
			body, err := json.Marshal(result)
			if err != nil {
				resp.Error = fmt.Sprintf("failed to marshal result: %v", err)
			} else {
				resp.Result = body
			}
		}

		if err := s.transport.Post(ctx, resp); err != nil {
			slog.Error("[Bridge] Failed to post response",
				slog.String("action", string(msg.Action)),
				slog.Uint64("id", msg.ID),
				slog.String("error", err.Error()))
		}
	}()
}

func (s *Server) run(ctx context.Context, h HandlerFunc, msg Message) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Bridge] Handler panicked",
				slog.String("action", string(msg.Action)),
				slog.Any("panic", r))
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, msg.Payload)
}

// Handler adapts a typed function into a HandlerFunc.
func Handler[Req any, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("invalid payload: %w", err)
			}
		}
		return fn(ctx, req)
	}
}
