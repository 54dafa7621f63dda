// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

// Package kairn wires the storage backend, the notification bus and every
// engine into one App.
package kairn

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kairn-ai/kairn/internal/activity"
	"github.com/kairn-ai/kairn/internal/config"
	"github.com/kairn-ai/kairn/internal/events"
	"github.com/kairn-ai/kairn/internal/experience"
	"github.com/kairn-ai/kairn/internal/graph"
	"github.com/kairn-ai/kairn/internal/ideas"
	"github.com/kairn-ai/kairn/internal/intelligence"
	"github.com/kairn-ai/kairn/internal/project"
	"github.com/kairn-ai/kairn/internal/router"
	"github.com/kairn-ai/kairn/internal/store"
	_ "github.com/kairn-ai/kairn/internal/store/sqlite" // register sqlite backend
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// App holds every wired component.
type App struct {
	Config       *config.Config
	Store        store.Store
	Bus          *events.Bus
	Graph        *graph.Engine
	Experience   *experience.Engine
	Router       *router.Router
	Ideas        *ideas.Engine
	Projects     *project.Engine
	Intelligence *intelligence.Layer
	Activity     *activity.Recorder
}

// Open builds the App for cfg. Nothing is returned unless the store opened
// and migrated.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Storage.
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeCLISetupFailure, "creating storage directory: %w", err)
	}
	s, err := store.Open(store.StorageConfig{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		WALMode: cfg.Storage.WALMode,
	})
	if err != nil {
		return nil, kairnerr.Wrap(err, kairnerr.CodeCLISetupFailure, "opening store",
			kairnerr.Field("path", cfg.Storage.Path))
	}

	// 2. Notification bus and activity log.
	bus := events.NewBus(
		events.WithListenerTimeout(cfg.Events.ListenerTimeout),
		events.WithLogger(logger.With("component", "events")),
	)
	rec := activity.NewRecorder(s.Activity())
	if cfg.Activity.Enabled {
		rec.Attach(bus)
	}

	// 3. Engines.
	g := graph.New(s, bus,
		graph.WithLogger(logger.With("component", "graph")),
		graph.WithPagination(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit),
	)
	x := experience.New(s.Experiences(), g, bus, experience.WithLogger(logger.With("component", "experience")))
	r := router.New(s, bus, router.WithLogger(logger.With("component", "router")))

	app := &App{
		Config:       cfg,
		Store:        s,
		Bus:          bus,
		Graph:        g,
		Experience:   x,
		Router:       r,
		Ideas:        ideas.New(s.Ideas(), g, bus, ideas.WithLogger(logger.With("component", "ideas"))),
		Projects:     project.New(s.Projects(), bus, project.WithLogger(logger.With("component", "project"))),
		Intelligence: intelligence.New(g, r, x, bus, intelligence.WithLogger(logger.With("component", "intelligence"))),
		Activity:     rec,
	}

	logger.Debug("kairn opened", "path", s.Path(), "backend", cfg.Storage.Backend)
	return app, nil
}

// Close detaches listeners and closes the store.
func (a *App) Close() error {
	a.Activity.Detach()
	a.Bus.Clear()
	return a.Store.Close()
}
