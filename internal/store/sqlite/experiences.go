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

const experienceColumns = `e.id, e.type, e.content, e.context, e.confidence, e.score, e.decay_rate,
	e.tags, e.properties, e.access_count, e.promoted_to_node_id, e.created_at, e.last_accessed`

type experienceStore struct {
	db *sql.DB
}

func (s *experienceStore) Insert(ctx context.Context, exp *store.Experience) error {
	if err := exp.Validate(); err != nil {
		return err
	}

	tags, err := encodeList(exp.Tags)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding experience tags", kairnerr.FieldExperienceID(exp.ID))
	}
	props, err := encodeMap(exp.Properties)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding experience properties", kairnerr.FieldExperienceID(exp.ID))
	}

	const q = `INSERT INTO experiences (id, type, content, context, confidence, score, decay_rate,
	tags, properties, access_count, promoted_to_node_id, created_at, last_accessed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, q,
		exp.ID, string(exp.Type), exp.Content, nullString(exp.Context), string(exp.Confidence), exp.Score, exp.DecayRate,
		tags, props, exp.AccessCount, nullString(exp.PromotedToNodeID), formatTime(exp.CreatedAt), formatTime(exp.LastAccessed),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kairnerr.Errorf(kairnerr.CodeStoreConflict, "experience %s: %w", exp.ID, store.ErrConflict)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "inserting experience %s: %w", exp.ID, err)
	}
	return nil
}

func (s *experienceStore) Get(ctx context.Context, id string) (*store.Experience, error) {
	q := `SELECT ` + experienceColumns + ` FROM experiences e WHERE e.id = ?`

	exp, err := scanExperience(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "experience %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "getting experience %s: %w", id, err)
	}
	return exp, nil
}

// IncrementAccess bumps access_count in SQL so concurrent accesses are never
// lost, then reads the row back.
func (s *experienceStore) IncrementAccess(ctx context.Context, id string, at time.Time) (*store.Experience, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE experiences SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "incrementing access for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "experience %s: %w", id, store.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *experienceStore) MarkPromoted(ctx context.Context, id, nodeID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE experiences SET promoted_to_node_id = ? WHERE id = ? AND promoted_to_node_id IS NULL`,
		nodeID, id,
	)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "marking experience %s promoted: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns every experience matching q. With a Match expression the rows
// come back in bm25 order; otherwise newest first.
func (s *experienceStore) List(ctx context.Context, q store.ExperienceQuery) ([]*store.Experience, error) {
	var qb strings.Builder
	var conditions []string
	var args []any

	qb.WriteString(`SELECT ` + experienceColumns + ` FROM experiences e`)
	if q.Match != "" {
		qb.WriteString(` JOIN experiences_fts ON experiences_fts.rowid = e.rowid`)
		conditions = append(conditions, "experiences_fts MATCH ?")
		args = append(args, q.Match)
	}
	if q.Type != "" {
		conditions = append(conditions, "e.type = ?")
		args = append(args, string(q.Type))
	}
	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}
	if q.Match != "" {
		qb.WriteString(" ORDER BY experiences_fts.rank")
	} else {
		qb.WriteString(" ORDER BY e.created_at DESC")
	}

	return s.queryExperiences(ctx, qb.String(), args...)
}

func (s *experienceStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM experiences WHERE id = ?`, id)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "deleting experience %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Promotable lists unpromoted experiences whose access count reached
// threshold.
func (s *experienceStore) Promotable(ctx context.Context, threshold int) ([]*store.Experience, error) {
	q := `SELECT ` + experienceColumns + ` FROM experiences e
WHERE e.access_count >= ? AND e.promoted_to_node_id IS NULL
ORDER BY e.created_at ASC`
	return s.queryExperiences(ctx, q, threshold)
}

func (s *experienceStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM experiences`).Scan(&count); err != nil {
		return 0, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting experiences: %w", err)
	}
	return count, nil
}

func (s *experienceStore) queryExperiences(ctx context.Context, q string, args ...any) ([]*store.Experience, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "querying experiences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*store.Experience
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning experience row: %w", err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating experiences: %w", err)
	}
	return out, nil
}

func scanExperience(sc rowScanner) (*store.Experience, error) {
	var (
		e                       store.Experience
		typ, confidence         string
		ctxText, tags, props    sql.NullString
		promoted                sql.NullString
		createdAt, lastAccessed sql.NullString
	)
	if err := sc.Scan(
		&e.ID, &typ, &e.Content, &ctxText, &confidence, &e.Score, &e.DecayRate,
		&tags, &props, &e.AccessCount, &promoted, &createdAt, &lastAccessed,
	); err != nil {
		return nil, err
	}

	var err error
	if e.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("experience %s tags: %w", e.ID, err)
	}
	if e.Properties, err = decodeMap(props); err != nil {
		return nil, fmt.Errorf("experience %s properties: %w", e.ID, err)
	}
	e.Type = store.ExperienceType(typ)
	e.Confidence = store.Confidence(confidence)
	e.Context = ctxText.String
	e.PromotedToNodeID = promoted.String
	e.CreatedAt = parseTime(createdAt)
	e.LastAccessed = parseTime(lastAccessed)
	return &e, nil
}
