// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kairn-ai/kairn/internal/store"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

const nodeColumns = `n.id, n.namespace, n.type, n.name, n.description, n.properties, n.tags,
	n.visibility, n.source_type, n.source_ref, n.created_by, n.created_at, n.updated_at, n.deleted_at`

type nodeStore struct {
	db *sql.DB
}

func (s *nodeStore) Insert(ctx context.Context, node *store.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	props, err := encodeMap(node.Properties)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding node properties", kairnerr.FieldNodeID(node.ID))
	}
	tags, err := encodeList(node.Tags)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding node tags", kairnerr.FieldNodeID(node.ID))
	}

	const q = `INSERT INTO nodes (id, namespace, type, name, description, properties, tags,
	visibility, source_type, source_ref, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, q,
		node.ID, node.Namespace, node.Type, node.Name, nullString(node.Description), props, tags,
		node.Visibility, nullString(node.SourceType), nullString(node.SourceRef), nullString(node.CreatedBy),
		formatTime(node.CreatedAt), formatTime(node.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kairnerr.Errorf(kairnerr.CodeStoreConflict, "node %s: %w", node.ID, store.ErrConflict)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "inserting node %s: %w", node.ID, err)
	}
	return nil
}

func (s *nodeStore) Get(ctx context.Context, id string) (*store.Node, error) {
	q := `SELECT ` + nodeColumns + ` FROM nodes n WHERE n.id = ? AND n.deleted_at IS NULL`

	node, err := scanNode(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "node %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "getting node %s: %w", id, err)
	}
	return node, nil
}

func (s *nodeStore) Update(ctx context.Context, id string, patch store.NodePatch) (*store.Node, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *patch.Type)
	}
	if patch.Namespace != nil {
		sets = append(sets, "namespace = ?")
		args = append(args, *patch.Namespace)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*patch.Description))
	}
	if patch.Properties != nil {
		props, err := encodeMap(patch.Properties)
		if err != nil {
			return nil, kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding node properties", kairnerr.FieldNodeID(id))
		}
		sets = append(sets, "properties = ?")
		args = append(args, props)
	}
	if patch.Tags != nil {
		tags, err := encodeList(patch.Tags)
		if err != nil {
			return nil, kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding node tags", kairnerr.FieldNodeID(id))
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	if patch.Visibility != nil {
		sets = append(sets, "visibility = ?")
		args = append(args, *patch.Visibility)
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(updatedAt), id)

	q := `UPDATE nodes SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "updating node %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "node %s: %w", id, store.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *nodeStore) SoftDelete(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(at), id,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "soft-deleting node %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *nodeStore) Restore(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`, id,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "restoring node %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Query lists live nodes. With a Match expression results are ranked by
// bm25; otherwise the most recently touched nodes come first.
func (s *nodeStore) Query(ctx context.Context, q store.NodeQuery) ([]*store.Node, error) {
	var qb strings.Builder
	var conditions []string
	var args []any

	qb.WriteString(`SELECT ` + nodeColumns + ` FROM nodes n`)
	if q.Match != "" {
		qb.WriteString(` JOIN nodes_fts ON nodes_fts.rowid = n.rowid`)
		conditions = append(conditions, "nodes_fts MATCH ?")
		args = append(args, q.Match)
	}

	conditions = append(conditions, "n.deleted_at IS NULL")
	if q.Namespace != "" {
		conditions = append(conditions, "n.namespace = ?")
		args = append(args, q.Namespace)
	}
	if q.Type != "" {
		conditions = append(conditions, "n.type = ?")
		args = append(args, q.Type)
	}
	if q.Visibility != "" {
		conditions = append(conditions, "n.visibility = ?")
		args = append(args, q.Visibility)
	}
	if q.SourceRef != "" {
		conditions = append(conditions, "n.source_ref = ?")
		args = append(args, q.SourceRef)
	}
	if q.ExcludeID != "" {
		conditions = append(conditions, "n.id != ?")
		args = append(args, q.ExcludeID)
	}
	for _, tag := range q.Tags {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(n.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}

	qb.WriteString(" WHERE ")
	qb.WriteString(strings.Join(conditions, " AND "))

	if q.Match != "" {
		qb.WriteString(" ORDER BY nodes_fts.rank")
	} else {
		qb.WriteString(" ORDER BY n.updated_at IS NULL, n.updated_at DESC, n.created_at DESC")
	}

	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, normalizeLimit(q.Limit, 10), q.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "querying nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*store.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning node row: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating nodes: %w", err)
	}
	return nodes, nil
}

func (s *nodeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE deleted_at IS NULL`).Scan(&count); err != nil {
		return 0, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting nodes: %w", err)
	}
	return count, nil
}

func (s *nodeStore) CountByNamespace(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*) FROM nodes WHERE deleted_at IS NULL GROUP BY namespace`)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting nodes by namespace: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var ns string
		var n int64
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning namespace count: %w", err)
		}
		out[ns] = n
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating namespace counts: %w", err)
	}
	return out, nil
}

func scanNode(sc rowScanner) (*store.Node, error) {
	var (
		n                                store.Node
		desc, props, tags                sql.NullString
		sourceType, sourceRef, createdBy sql.NullString
		createdAt, updatedAt, deletedAt  sql.NullString
	)
	if err := sc.Scan(
		&n.ID, &n.Namespace, &n.Type, &n.Name, &desc, &props, &tags,
		&n.Visibility, &sourceType, &sourceRef, &createdBy, &createdAt, &updatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if n.Properties, err = decodeMap(props); err != nil {
		return nil, fmt.Errorf("node %s properties: %w", n.ID, err)
	}
	if n.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("node %s tags: %w", n.ID, err)
	}
	n.Description = desc.String
	n.SourceType = sourceType.String
	n.SourceRef = sourceRef.String
	n.CreatedBy = createdBy.String
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	n.DeletedAt = parseTime(deletedAt)
	return &n, nil
}
