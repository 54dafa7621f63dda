// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package project tracks projects, the single active project and their
// progress logs.
package project

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

var transitions = map[store.ProjectPhase][]store.ProjectPhase{
	store.PhasePlanning: {store.PhaseActive},
	store.PhaseActive:   {store.PhasePaused, store.PhaseDone},
	store.PhasePaused:   {store.PhaseActive, store.PhaseDone},
	store.PhaseDone:     nil,
}

// CanTransition reports whether a project may move between phases. Staying
// in the same phase is always allowed.
func CanTransition(from, to store.ProjectPhase) bool {
	return from == to || slices.Contains(transitions[from], to)
}

// Engine is the Project Lifecycle engine.
type Engine struct {
	store  store.ProjectStore
	bus    events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a project engine.
func New(s store.ProjectStore, bus events.Emitter, opts ...Option) *Engine {
	e := &Engine{store: s, bus: bus, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.Nop{}
	}
	return e
}

// CreateInput describes a new project.
type CreateInput struct {
	Name           string
	Goals          []string
	Stakeholders   []string
	SuccessMetrics []string
}

// Update carries the fields to change. Nil fields are left alone.
type Update struct {
	Name           *string
	Phase          *store.ProjectPhase
	Goals          []string
	Stakeholders   []string
	SuccessMetrics []string
}

// ProgressInput is one progress or failure log entry.
type ProgressInput struct {
	Action   string
	Result   string
	NextStep string
}

// Create stores a new project in the planning phase.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*store.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, kairnerr.New(kairnerr.CodeProjectCreateInvalid, "project name is required")
	}

	now := e.now().UTC()
	p := &store.Project{
		ID:             uuid.NewString(),
		Name:           name,
		Phase:          store.PhasePlanning,
		Goals:          in.Goals,
		Stakeholders:   in.Stakeholders,
		SuccessMetrics: in.SuccessMetrics,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.Insert(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	if err := e.bus.Emit(ctx, events.ProjectCreated, map[string]any{
		"project_id": p.ID,
		"name":       p.Name,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the project, or nil when there is none.
func (e *Engine) Get(ctx context.Context, id string) (*store.Project, error) {
	p, err := e.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// Update applies u after checking the phase transition. It returns nil when
// the project does not exist.
func (e *Engine) Update(ctx context.Context, id string, u Update) (*store.Project, error) {
	current, err := e.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	if u.Phase != nil {
		if !u.Phase.Valid() {
			return nil, kairnerr.Errorf(kairnerr.CodeProjectTransitionInvalid, "invalid project phase %q", *u.Phase)
		}
		if !CanTransition(current.Phase, *u.Phase) {
			return nil, kairnerr.Errorf(kairnerr.CodeProjectTransitionInvalid,
				"cannot move project from %s to %s: allowed %v",
				current.Phase, *u.Phase, transitions[current.Phase])
		}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, kairnerr.New(kairnerr.CodeProjectCreateInvalid, "project name cannot be blank", kairnerr.FieldProjectID(id))
	}

	updated, err := e.store.Update(ctx, id, store.ProjectPatch{
		Name:           u.Name,
		Phase:          u.Phase,
		Goals:          u.Goals,
		Stakeholders:   u.Stakeholders,
		SuccessMetrics: u.SuccessMetrics,
		UpdatedAt:      e.now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"project_id": id}
	if u.Phase != nil {
		payload["phase"] = string(*u.Phase)
	}
	if err := e.bus.Emit(ctx, events.ProjectUpdated, payload); err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns projects newest first, optionally only the active one.
func (e *Engine) List(ctx context.Context, activeOnly bool) ([]*store.Project, error) {
	return e.store.List(ctx, activeOnly)
}

// Active returns the active project, or nil when none is active.
func (e *Engine) Active(ctx context.Context) (*store.Project, error) {
	ps, err := e.store.List(ctx, true)
	if err != nil || len(ps) == 0 {
		return nil, err
	}
	return ps[0], nil
}

// SetActive makes id the only active project. It returns false when the
// project does not exist.
func (e *Engine) SetActive(ctx context.Context, id string) (bool, error) {
	ok, err := e.store.SetActive(ctx, id, e.now().UTC())
	if err != nil || !ok {
		return false, err
	}

	e.logger.Info("project activated", "project_id", id)
	if err := e.bus.Emit(ctx, events.ProjectActivated, map[string]any{"project_id": id}); err != nil {
		return true, err
	}
	return true, nil
}

// LogProgress appends a progress entry to the project's log.
func (e *Engine) LogProgress(ctx context.Context, projectID string, in ProgressInput) (*store.ProgressEntry, error) {
	return e.log(ctx, projectID, store.ProgressEntryProgress, in)
}

// LogFailure appends a failure entry to the project's log.
func (e *Engine) LogFailure(ctx context.Context, projectID string, in ProgressInput) (*store.ProgressEntry, error) {
	return e.log(ctx, projectID, store.ProgressEntryFailure, in)
}

func (e *Engine) log(ctx context.Context, projectID string, typ store.ProgressType, in ProgressInput) (*store.ProgressEntry, error) {
	if strings.TrimSpace(in.Action) == "" {
		return nil, kairnerr.New(kairnerr.CodeProjectProgressInvalid, "progress action is required", kairnerr.FieldProjectID(projectID))
	}

	entry := &store.ProgressEntry{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      typ,
		Action:    in.Action,
		Result:    in.Result,
		NextStep:  in.NextStep,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.AppendProgress(ctx, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, kairnerr.Errorf(kairnerr.CodeProjectProgressNotFound, "project %s: %w", projectID, store.ErrNotFound)
		}
		return nil, err
	}

	if err := e.bus.Emit(ctx, events.ProgressLogged, map[string]any{
		"project_id": projectID,
		"type":       string(typ),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Progress lists the project's log newest first. An empty typ returns both
// kinds.
func (e *Engine) Progress(ctx context.Context, projectID string, typ store.ProgressType, limit int) ([]*store.ProgressEntry, error) {
	if typ != "" && !typ.Valid() {
		return nil, kairnerr.Errorf(kairnerr.CodeProjectProgressInvalid, "invalid progress type %q", typ)
	}
	return e.store.ListProgress(ctx, store.ProgressQuery{ProjectID: projectID, Type: typ, Limit: limit})
}
