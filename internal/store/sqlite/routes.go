// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

type routeStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Lookup loads the routes for keywords in the order the keywords were given.
// Routes that fail validation are logged and left out.
func (s *routeStore) Lookup(ctx context.Context, keywords []string) ([]*store.Route, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keywords)), ", ")
	args := make([]any, len(keywords))
	for i, k := range keywords {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, confidence, created_at, updated_at FROM routes WHERE keyword IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "looking up routes: %w", err)
	}

	byKeyword := make(map[string]*store.Route, len(keywords))
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			_ = rows.Close()
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning route row: %w", err)
		}
		byKeyword[r.Keyword] = r
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating routes: %w", err)
	}
	_ = rows.Close()

	var out []*store.Route
	for _, k := range keywords {
		r, ok := byKeyword[k]
		if !ok {
			continue
		}
		delete(byKeyword, k)
		if r.NodeIDs, err = s.nodeIDs(ctx, k); err != nil {
			return nil, err
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid route", "keyword", k, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *routeStore) Get(ctx context.Context, keyword string) (*store.Route, error) {
	r, err := scanRoute(s.db.QueryRowContext(ctx,
		`SELECT keyword, confidence, created_at, updated_at FROM routes WHERE keyword = ?`, keyword))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "route %q: %w", keyword, store.ErrNotFound)
	}
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "getting route %q: %w", keyword, err)
	}
	if r.NodeIDs, err = s.nodeIDs(ctx, keyword); err != nil {
		return nil, err
	}
	return r, nil
}

// AddNode creates the route if needed and appends nodeID to its list in one
// transaction. An existing route keeps its confidence.
func (s *routeStore) AddNode(ctx context.Context, keyword, nodeID string, confidence float64, at time.Time) (bool, error) {
	if keyword == "" || nodeID == "" {
		return false, kairnerr.New(kairnerr.CodeStoreInvalidInput, "route: keyword and node id are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "beginning route tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := formatTime(at)
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO routes (keyword, confidence, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		keyword, confidence, ts, ts,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "creating route %q: %w", keyword, err)
	}
	n, _ := res.RowsAffected()
	created := n > 0

	res, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO route_nodes (keyword, node_id, position)
SELECT ?, ?, COALESCE(MAX(position), -1) + 1 FROM route_nodes WHERE keyword = ?`,
		keyword, nodeID, keyword,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "adding node to route %q: %w", keyword, err)
	}
	if n, _ := res.RowsAffected(); n > 0 && !created {
		if _, err := tx.ExecContext(ctx, `UPDATE routes SET updated_at = ? WHERE keyword = ?`, ts, keyword); err != nil {
			return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "touching route %q: %w", keyword, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "committing route %q: %w", keyword, err)
	}
	return created, nil
}

func (s *routeStore) nodeIDs(ctx context.Context, keyword string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id FROM route_nodes WHERE keyword = ? ORDER BY position`, keyword)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "loading route nodes for %q: %w", keyword, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning route node: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating route nodes: %w", err)
	}
	return ids, nil
}

func scanRoute(sc rowScanner) (*store.Route, error) {
	var (
		r                    store.Route
		createdAt, updatedAt sql.NullString
	)
	if err := sc.Scan(&r.Keyword, &r.Confidence, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
