// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package project_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/project"
	"github.com/kairn-ai/kairn/internal/store"
	"github.com/kairn-ai/kairn/internal/store/sqlite"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

func setup(t *testing.T) (*project.Engine, *events.Bus) {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Each call is one minute after the previous so ordering is stable.
	tick := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	bus := events.NewBus()
	return project.New(s.Projects(), bus, project.WithClock(clock)), bus
}

func phase(p store.ProjectPhase) *store.ProjectPhase { return &p }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to store.ProjectPhase
		want     bool
	}{
		{store.PhasePlanning, store.PhaseActive, true},
		{store.PhasePlanning, store.PhasePaused, false},
		{store.PhasePlanning, store.PhaseDone, false},
		{store.PhaseActive, store.PhasePaused, true},
		{store.PhaseActive, store.PhaseDone, true},
		{store.PhaseActive, store.PhasePlanning, false},
		{store.PhasePaused, store.PhaseActive, true},
		{store.PhasePaused, store.PhaseDone, true},
		{store.PhaseDone, store.PhaseActive, false},
		{store.PhaseDone, store.PhasePlanning, false},
		{store.PhaseDone, store.PhaseDone, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, project.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	e, bus := setup(t)

	var seen []events.Type
	bus.OnAll(func(_ context.Context, ev events.Event) error {
		seen = append(seen, ev.Type)
		return nil
	})

	p, err := e.Create(ctx, project.CreateInput{Name: "Kairn v1", Goals: []string{"ship"}})
	require.NoError(t, err)
	assert.Equal(t, store.PhasePlanning, p.Phase)
	assert.False(t, p.Active)

	_, err = e.Create(ctx, project.CreateInput{})
	require.Error(t, err)
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeProjectCreateInvalid))

	_, err = e.Update(ctx, p.ID, project.Update{Phase: phase(store.PhaseDone)})
	require.Error(t, err)
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeProjectTransitionInvalid))

	updated, err := e.Update(ctx, p.ID, project.Update{
		Phase:        phase(store.PhaseActive),
		Stakeholders: []string{"platform"},
	})
	require.NoError(t, err)
	assert.Equal(t, store.PhaseActive, updated.Phase)
	assert.Equal(t, []string{"ship"}, updated.Goals)
	assert.Equal(t, []string{"platform"}, updated.Stakeholders)

	done, err := e.Update(ctx, p.ID, project.Update{Phase: phase(store.PhaseDone)})
	require.NoError(t, err)
	assert.Equal(t, store.PhaseDone, done.Phase)

	_, err = e.Update(ctx, p.ID, project.Update{Phase: phase(store.PhaseActive)})
	require.Error(t, err, "done is terminal")

	missing, err := e.Update(ctx, "missing", project.Update{Name: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []events.Type{events.ProjectCreated, events.ProjectUpdated, events.ProjectUpdated}, seen)
}

func ptr(s string) *string { return &s }

func TestSetActive_SingleActive(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)

	a, err := e.Create(ctx, project.CreateInput{Name: "A"})
	require.NoError(t, err)
	b, err := e.Create(ctx, project.CreateInput{Name: "B"})
	require.NoError(t, err)

	ok, err := e.SetActive(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = e.SetActive(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := e.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	current, err := e.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)

	ok, err = e.SetActive(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := e.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProgressLog(t *testing.T) {
	ctx := context.Background()
	e, bus := setup(t)

	var logged []string
	bus.On(events.ProgressLogged, func(_ context.Context, ev events.Event) error {
		logged = append(logged, ev.Payload["type"].(string))
		return nil
	})

	p, err := e.Create(ctx, project.CreateInput{Name: "Migration"})
	require.NoError(t, err)

	_, err = e.LogProgress(ctx, p.ID, project.ProgressInput{Action: "schema drafted", NextStep: "review"})
	require.NoError(t, err)
	_, err = e.LogFailure(ctx, p.ID, project.ProgressInput{Action: "backfill", Result: "timeout"})
	require.NoError(t, err)
	_, err = e.LogProgress(ctx, p.ID, project.ProgressInput{Action: "backfill retried"})
	require.NoError(t, err)

	entries, err := e.Progress(ctx, p.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "backfill retried", entries[0].Action, "newest first")
	assert.Equal(t, "schema drafted", entries[2].Action)

	failures, err := e.Progress(ctx, p.ID, store.ProgressEntryFailure, 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "timeout", failures[0].Result)

	_, err = e.LogProgress(ctx, "missing", project.ProgressInput{Action: "x"})
	require.Error(t, err)
	assert.True(t, kairnerr.IsNotFound(err))

	_, err = e.LogProgress(ctx, p.ID, project.ProgressInput{})
	require.Error(t, err)
	assert.True(t, kairnerr.IsInvalidInput(err))

	_, err = e.Progress(ctx, p.ID, "bogus", 10)
	require.Error(t, err)

	assert.Equal(t, []string{"progress", "failure", "progress"}, logged)
}
