// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package activity_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairn-ai/kairn/internal/activity"
	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/store"
	"github.com/kairn-ai/kairn/internal/store/sqlite"
)

func TestRecorder_LogsBusNotifications(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := events.NewBus()
	rec := activity.NewRecorder(s.Activity())
	rec.Attach(bus)

	g := graph.New(s, bus)
	a, err := g.AddNode(ctx, graph.NodeInput{Name: "first", Type: "note"})
	require.NoError(t, err)
	b, err := g.AddNode(ctx, graph.NodeInput{Name: "second", Type: "note"})
	require.NoError(t, err)
	_, err = g.Connect(ctx, a.ID, b.ID, "follows", 1, nil)
	require.NoError(t, err)

	all, err := rec.Recent(ctx, store.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, string(events.EdgeCreated), all[0].Type, "newest first")
	assert.Equal(t, a.ID, all[0].Payload["source_id"])

	nodes, err := rec.Recent(ctx, store.ActivityFilter{Type: string(events.NodeCreated)})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	rec.Detach()
	assert.Zero(t, bus.Len())
	_, err = g.AddNode(ctx, graph.NodeInput{Name: "third", Type: "note"})
	require.NoError(t, err)

	all, err = rec.Recent(ctx, store.ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "detached recorder stops logging")
}

func TestRecorder_RecordErrorsReachBus(t *testing.T) {
	s, err := sqlite.New(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	rec := activity.NewRecorder(s.Activity())
	err = rec.Record(context.Background(), events.Event{Type: events.NodeCreated})
	assert.Error(t, err)
}
