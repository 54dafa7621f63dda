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

type activityStore struct {
	db *sql.DB
}

func (s *activityStore) Append(ctx context.Context, entry *store.Activity) error {
	if entry.ID == "" || entry.Type == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "activity: ID and Type are required")
	}

	payload, err := encodeMap(entry.Payload)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding activity payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, type, payload, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Type, payload, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "appending activity: %w", err)
	}
	return nil
}

// Query returns activity newest first.
func (s *activityStore) Query(ctx context.Context, filter store.ActivityFilter) ([]*store.Activity, error) {
	var qb strings.Builder
	var conditions []string
	var args []any

	qb.WriteString(`SELECT id, type, payload, created_at FROM activity_log`)
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}
	qb.WriteString(" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?")
	args = append(args, normalizeLimit(filter.Limit, 50), filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "querying activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*store.Activity
	for rows.Next() {
		var (
			a                  store.Activity
			payload, createdAt sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Type, &payload, &createdAt); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning activity row: %w", err)
		}
		if a.Payload, err = decodeMap(payload); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "activity %s payload: %w", a.ID, err)
		}
		a.CreatedAt = parseTime(createdAt)
		entries = append(entries, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating activity: %w", err)
	}
	return entries, nil
}
