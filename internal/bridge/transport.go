package bridge

import (
	"context"
	"log/slog"
	"sync"
)

// Transport moves messages between worlds. Subscribe registers fn before it
// returns and keeps delivering until ctx ends; fn must not block.
type Transport interface {
	Post(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, fn func(Message)) error
}

const busBuffer = 256

// Bus is an in-process broadcast channel: every subscriber sees every
// message, the way every listener of a window sees every posted message.
type Bus struct {
	mu        sync.RWMutex
	listeners map[int]*busListener
	next      int
}

type busListener struct {
	ch   chan Message
	done <-chan struct{}
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[int]*busListener)}
}

func (b *Bus) Post(ctx context.Context, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range b.listeners {
		select {
		case l.ch <- msg:
		case <-l.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, fn func(Message)) error {
	ch := make(chan Message, busBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = &busListener{ch: ch, done: ctx.Done()}
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				deliver(fn, msg)
			}
		}
	}()
	return nil
}

func deliver(fn func(Message), msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Bridge] Listener panicked",
				slog.Any("panic", r),
				slog.String("action", string(msg.Action)))
		}
	}()
	fn(msg)
}
