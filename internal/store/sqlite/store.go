// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.Store           = (*Store)(nil)
	_ store.NodeStore       = (*nodeStore)(nil)
	_ store.EdgeStore       = (*edgeStore)(nil)
	_ store.ExperienceStore = (*experienceStore)(nil)
	_ store.RouteStore      = (*routeStore)(nil)
	_ store.IdeaStore       = (*ideaStore)(nil)
	_ store.ProjectStore    = (*projectStore)(nil)
	_ store.ActivityStore   = (*activityStore)(nil)
)

// Store implements store.Store on a single SQLite database file.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	nodes       *nodeStore
	edges       *edgeStore
	experiences *experienceStore
	routes      *routeStore
	ideas       *ideaStore
	projects    *projectStore
	activity    *activityStore
}

// Option configures a Store.
type Option func(*options)

type options struct {
	wal    bool
	logger *slog.Logger
}

// WithWAL toggles write-ahead logging. It is on by default.
func WithWAL(enabled bool) Option {
	return func(o *options) { o.wal = enabled }
}

// WithLogger sets the logger used for best-effort warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New opens (or creates) the database at dbPath, applies connection pragmas
// and runs pending migrations. Any failure here is fatal for the caller.
func New(dbPath string, opts ...Option) (*Store, error) {
	o := options{wal: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath, o.wal))
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, kairnerr.Errorf(kairnerr.CodeStoreMigrateFailure, "migrating %s: %w", dbPath, err)
	}

	s := &Store{db: db, path: dbPath, logger: o.logger}
	s.nodes = &nodeStore{db: db}
	s.edges = &edgeStore{db: db}
	s.experiences = &experienceStore{db: db}
	s.routes = &routeStore{db: db, logger: o.logger}
	s.ideas = &ideaStore{db: db}
	s.projects = &projectStore{db: db}
	s.activity = &activityStore{db: db}
	return s, nil
}

// dsn builds a modernc connection string. Pragmas are passed as _pragma
// parameters so every pooled connection gets them, not only the first.
func dsn(path string, wal bool) string {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if wal {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}
	return "file:" + path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

func (s *Store) Nodes() store.NodeStore             { return s.nodes }
func (s *Store) Edges() store.EdgeStore             { return s.edges }
func (s *Store) Experiences() store.ExperienceStore { return s.experiences }
func (s *Store) Routes() store.RouteStore           { return s.routes }
func (s *Store) Ideas() store.IdeaStore             { return s.ideas }
func (s *Store) Projects() store.ProjectStore       { return s.projects }
func (s *Store) Activity() store.ActivityStore      { return s.activity }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle for diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats counts live records across every table.
func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	st := &store.Stats{Path: s.path}

	counts := []struct {
		dst *int64
		fn  func(context.Context) (int64, error)
	}{
		{&st.Nodes, s.nodes.Count},
		{&st.Edges, s.edges.Count},
		{&st.Experiences, s.experiences.Count},
		{&st.Ideas, s.ideas.Count},
		{&st.Projects, s.projects.Count},
	}
	for _, c := range counts {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	ns, err := s.nodes.CountByNamespace(ctx)
	if err != nil {
		return nil, err
	}
	st.Namespaces = ns
	return st, nil
}

// IntegrityCheck runs PRAGMA quick_check and returns its first result line.
func (s *Store) IntegrityCheck(ctx context.Context) (string, error) {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return "", kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "running quick_check: %w", err)
	}
	return result, nil
}
