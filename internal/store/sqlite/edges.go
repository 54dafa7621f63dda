// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

type edgeStore struct {
	db *sql.DB
}

// Insert writes the edge only when both endpoints are live nodes.
func (s *edgeStore) Insert(ctx context.Context, edge *store.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	props, err := encodeMap(edge.Properties)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding edge properties")
	}

	const q = `INSERT INTO edges (source_id, target_id, type, weight, properties, created_by, created_at)
SELECT ?, ?, ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM nodes WHERE id = ? AND deleted_at IS NULL)
  AND EXISTS (SELECT 1 FROM nodes WHERE id = ? AND deleted_at IS NULL)`

	res, err := s.db.ExecContext(ctx, q,
		edge.SourceID, edge.TargetID, edge.Type, edge.Weight, props, nullString(edge.CreatedBy), formatTime(edge.CreatedAt),
		edge.SourceID, edge.TargetID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kairnerr.Errorf(kairnerr.CodeStoreConflict, "edge %s -[%s]-> %s: %w",
				edge.SourceID, edge.Type, edge.TargetID, store.ErrConflict)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "inserting edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "edge %s -> %s: endpoint %w",
			edge.SourceID, edge.TargetID, store.ErrNotFound)
	}
	return nil
}

func (s *edgeStore) Delete(ctx context.Context, sourceID, targetID, edgeType string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM edges WHERE source_id = ? AND target_id = ? AND type = ?`,
		sourceID, targetID, edgeType,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "deleting edge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns edges touching q.NodeID. Edges whose other endpoint has been
// soft-deleted are still returned.
func (s *edgeStore) List(ctx context.Context, q store.EdgeQuery) ([]*store.Edge, error) {
	var qb strings.Builder
	var args []any

	qb.WriteString(`SELECT source_id, target_id, type, weight, properties, created_by, created_at FROM edges WHERE `)

	switch q.Direction {
	case store.DirectionOutgoing:
		qb.WriteString("source_id = ?")
		args = append(args, q.NodeID)
	case store.DirectionIncoming:
		qb.WriteString("target_id = ?")
		args = append(args, q.NodeID)
	default:
		qb.WriteString("(source_id = ? OR target_id = ?)")
		args = append(args, q.NodeID, q.NodeID)
	}

	if q.Type != "" {
		qb.WriteString(" AND type = ?")
		args = append(args, q.Type)
	}
	qb.WriteString(" ORDER BY created_at ASC")

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "listing edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []*store.Edge
	for rows.Next() {
		var (
			e                store.Edge
			props, createdBy sql.NullString
			createdAt        sql.NullString
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Type, &e.Weight, &props, &createdBy, &createdAt); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning edge row: %w", err)
		}
		if e.Properties, err = decodeMap(props); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "edge %s -> %s: %w", e.SourceID, e.TargetID, err)
		}
		e.CreatedBy = createdBy.String
		e.CreatedAt = parseTime(createdAt)
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating edges: %w", err)
	}
	return edges, nil
}

func (s *edgeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&count); err != nil {
		return 0, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting edges: %w", err)
	}
	return count, nil
}
