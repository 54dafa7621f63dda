// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package activity persists every bus notification to the activity log.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/store"
)

// Subscriber is the registration side of the bus.
type Subscriber interface {
	OnAll(fn events.Listener) uint64
	Off(id uint64) bool
}

// Recorder appends notifications to an ActivityStore.
type Recorder struct {
	store store.ActivityStore
	now   func() time.Time
	sub   Subscriber
	id    uint64
}

// NewRecorder creates a recorder. It records nothing until Attach is called.
func NewRecorder(s store.ActivityStore) *Recorder {
	return &Recorder{store: s, now: time.Now}
}

// Attach subscribes the recorder to every notification on sub.
func (r *Recorder) Attach(sub Subscriber) {
	r.Detach()
	r.sub = sub
	r.id = sub.OnAll(r.Record)
}

// Detach stops recording.
func (r *Recorder) Detach() {
	if r.sub != nil {
		r.sub.Off(r.id)
		r.sub = nil
	}
}

// Record stores ev. Errors go back to the bus, which logs them.
func (r *Recorder) Record(ctx context.Context, ev events.Event) error {
	return r.store.Append(ctx, &store.Activity{
		ID:        uuid.NewString(),
		Type:      string(ev.Type),
		Payload:   ev.Payload,
		CreatedAt: r.now().UTC(),
	})
}

// Recent lists logged notifications, newest first.
func (r *Recorder) Recent(ctx context.Context, filter store.ActivityFilter) ([]*store.Activity, error) {
	return r.store.Query(ctx, filter)
}
