// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// DefaultListenerTimeout bounds how long a single listener may run.
const DefaultListenerTimeout = 5 * time.Second

// Listener handles a notification. The context carries the per-listener
// deadline.
type Listener func(ctx context.Context, ev Event) error

// Emitter is the publishing side of the bus, which is all the engines need.
type Emitter interface {
	Emit(ctx context.Context, typ Type, payload map[string]any) error
}

type subscription struct {
	id  uint64
	typ Type // empty for global listeners
	fn  Listener
}

// Bus dispatches notifications to listeners sequentially, awaiting each one.
// Listener failures are logged and never reach the emitter.
type Bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    []subscription
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithListenerTimeout sets the per-listener deadline. Non-positive values
// keep the default.
func WithListenerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger sets the logger for swallowed listener failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{timeout: DefaultListenerTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers fn for one notification type and returns its handle.
func (b *Bus) On(typ Type, fn Listener) uint64 {
	return b.add(typ, fn)
}

// OnAll registers fn for every notification.
func (b *Bus) OnAll(fn Listener) uint64 {
	return b.add("", fn)
}

func (b *Bus) add(typ Type, fn Listener) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, typ: typ, fn: fn})
	return b.nextID
}

// Off removes the listener with the given handle. It reports whether one
// was removed.
func (b *Bus) Off(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every listener.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit runs the typed listeners for typ, then the global ones. The only
// error it returns is the caller's own context error.
func (b *Bus) Emit(ctx context.Context, typ Type, payload map[string]any) error {
	b.mu.RLock()
	typed := make([]subscription, 0, len(b.subs))
	var global []subscription
	for _, s := range b.subs {
		switch s.typ {
		case typ:
			typed = append(typed, s)
		case "":
			global = append(global, s)
		}
	}
	b.mu.RUnlock()

	ev := Event{Type: typ, Payload: payload}
	for _, s := range append(typed, global...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.dispatch(ctx, s, ev)
	}
	return ctx.Err()
}

func (b *Bus) dispatch(ctx context.Context, s subscription, ev Event) {
	err := b.call(ctx, s, ev)
	if err == nil {
		return
	}
	if kairnerr.IsTimeout(err) {
		b.logger.Warn("event listener timed out",
			"event", string(ev.Type), "listener", s.id, "timeout", b.timeout,
			"code", string(kairnerr.CodeOf(err)))
		return
	}
	b.logger.Warn("event listener failed",
		"event", string(ev.Type), "listener", s.id,
		"code", string(kairnerr.CodeOf(err)), "error", err)
}

// call runs one listener under its own deadline. A listener that ignores its
// context is abandoned at the deadline.
func (b *Bus) call(ctx context.Context, s subscription, ev Event) error {
	lctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- safeCall(lctx, s.fn, ev) }()

	var err error
	select {
	case err = <-done:
	case <-lctx.Done():
		err = lctx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(lctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return kairnerr.New(kairnerr.CodeEventsListenerTimeout, "event listener exceeded its deadline",
			kairnerr.FieldEvent(string(ev.Type)))
	}
	return kairnerr.Wrap(err, kairnerr.CodeEventsListenerFailure, "event listener failed",
		kairnerr.FieldEvent(string(ev.Type)))
}

func safeCall(ctx context.Context, fn Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = kairnerr.Errorf(kairnerr.CodeEventsListenerFailure, "listener panic: %v", r)
		}
	}()
	return fn(ctx, ev)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Emit(ctx context.Context, _ Type, _ map[string]any) error { return ctx.Err() }
