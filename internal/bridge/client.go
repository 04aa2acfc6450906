package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultTimeout = 15 * time.Second

// Client multiplexes calls over a Transport. Every call gets a fresh id and a
// pending entry that is removed on response, timeout or cancellation.
type Client struct {
	transport Transport
	source    string
	timeout   time.Duration

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan Message
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient binds a client to source; responses carrying any other source
// are ignored.
func NewClient(t Transport, source string, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		source:    source,
		timeout:   DefaultTimeout,
		pending:   make(map[uint64]chan Message),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Start(ctx context.Context) error {
	return c.transport.Subscribe(ctx, c.handle)
}

func (c *Client) Source() string {
	return c.source
}

// Pending reports the number of calls still waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Timeout is the wait applied to a Call before it is given up on.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Call sends action with payload and decodes the result into out, which may
// be nil.
func (c *Client) Call(ctx context.Context, action Action, payload, out any) error {
	return c.CallWithin(ctx, c.timeout, action, payload, out)
}

// CallWithin is Call with its own timeout, for actions whose handler is
// known to run longer than the client default.
func (c *Client) CallWithin(ctx context.Context, timeout time.Duration, action Action, payload, out any) error {
	if timeout <= 0 {
		timeout = c.timeout
	}

	body, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("bridge: failed to marshal %s payload: %w", action, err)
	}

	id := c.nextID.Add(1)
	reply := make(chan Message, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer c.forget(id)

	err = c.transport.Post(ctx, Message{
		Type:    TypeRequest,
		ID:      id,
		Source:  c.source,
		Action:  action,
		Payload: body,
	})
	if err != nil {
		return fmt.Errorf("bridge: failed to post %s: %w", action, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-reply:
		if msg.Error != "" {
			return &RemoteError{Action: action, Message: msg.Error}
		}
		if out != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, out); err != nil {
				return fmt.Errorf("bridge: failed to decode %s result: %w", action, err)
			}
		}
		return nil
	case <-timer.C:
		slog.Warn("[Bridge] Request timed out",
			slog.String("action", string(action)),
			slog.Uint64("id", id),
			slog.Duration("timeout", timeout))
		return fmt.Errorf("%w: %s #%d", ErrTimeout, action, id)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify posts a request without waiting for its response.
func (c *Client) Notify(ctx context.Context, action Action, payload any) error {
	body, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("bridge: failed to marshal %s payload: %w", action, err)
	}
	return c.transport.Post(ctx, Message{
		Type:    TypeRequest,
		ID:      c.nextID.Add(1),
		Source:  c.source,
		Action:  action,
		Payload: body,
	})
}

func (c *Client) handle(msg Message) {
	if msg.Type != TypeResponse || msg.Source != c.source {
		return
	}

	c.mu.Lock()
	reply, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if ok {
		reply <- msg
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Invoke is Call with a typed result.
func Invoke[T any](ctx context.Context, c *Client, action Action, payload any) (T, error) {
	var out T
	err := c.Call(ctx, action, payload, &out)
	return out, err
}

// InvokeWithin is CallWithin with a typed result.
func InvokeWithin[T any](ctx context.Context, c *Client, timeout time.Duration, action Action, payload any) (T, error) {
	var out T
	err := c.CallWithin(ctx, timeout, action, payload, &out)
	return out, err
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}
