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

const ideaColumns = `id, title, status, category, score, properties, visibility, created_by, created_at, updated_at`

type ideaStore struct {
	db *sql.DB
}

func (s *ideaStore) Insert(ctx context.Context, idea *store.Idea) error {
	if idea.ID == "" || strings.TrimSpace(idea.Title) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "idea: ID and Title are required")
	}
	if !idea.Status.Valid() {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "idea: invalid status %q", idea.Status)
	}

	props, err := encodeMap(idea.Properties)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding idea properties", kairnerr.FieldIdeaID(idea.ID))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ideas (`+ideaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.Title, string(idea.Status), nullString(idea.Category), nullFloat(idea.Score), props,
		idea.Visibility, nullString(idea.CreatedBy), formatTime(idea.CreatedAt), formatTime(idea.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kairnerr.Errorf(kairnerr.CodeStoreConflict, "idea %s: %w", idea.ID, store.ErrConflict)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "inserting idea %s: %w", idea.ID, err)
	}
	return nil
}

func (s *ideaStore) Get(ctx context.Context, id string) (*store.Idea, error) {
	idea, err := scanIdea(s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "idea %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "getting idea %s: %w", id, err)
	}
	return idea, nil
}

func (s *ideaStore) Update(ctx context.Context, id string, patch store.IdeaPatch) (*store.Idea, error) {
	var sets []string
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "idea: invalid status %q", *patch.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, nullString(*patch.Category))
	}
	if patch.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *patch.Score)
	}
	if patch.Properties != nil {
		props, err := encodeMap(patch.Properties)
		if err != nil {
			return nil, kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding idea properties", kairnerr.FieldIdeaID(id))
		}
		sets = append(sets, "properties = ?")
		args = append(args, props)
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

	res, err := s.db.ExecContext(ctx, `UPDATE ideas SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "updating idea %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "idea %s: %w", id, store.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// List orders ideas by score, unscored last, then newest first.
func (s *ideaStore) List(ctx context.Context, q store.IdeaQuery) ([]*store.Idea, error) {
	var qb strings.Builder
	var conditions []string
	var args []any

	qb.WriteString(`SELECT ` + ideaColumns + ` FROM ideas`)
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, q.Category)
	}
	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}
	qb.WriteString(" ORDER BY score IS NULL, score DESC, created_at DESC LIMIT ? OFFSET ?")
	args = append(args, normalizeLimit(q.Limit, 10), q.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "listing ideas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ideas []*store.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning idea row: %w", err)
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating ideas: %w", err)
	}
	return ideas, nil
}

func (s *ideaStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&count); err != nil {
		return 0, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting ideas: %w", err)
	}
	return count, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func scanIdea(sc rowScanner) (*store.Idea, error) {
	var (
		i                    store.Idea
		status               string
		category, props      sql.NullString
		createdBy            sql.NullString
		createdAt, updatedAt sql.NullString
		score                sql.NullFloat64
	)
	if err := sc.Scan(&i.ID, &i.Title, &status, &category, &score, &props,
		&i.Visibility, &createdBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if i.Properties, err = decodeMap(props); err != nil {
		return nil, fmt.Errorf("idea %s properties: %w", i.ID, err)
	}
	if score.Valid {
		v := score.Float64
		i.Score = &v
	}
	i.Status = store.IdeaStatus(status)
	i.Category = category.String
	i.CreatedBy = createdBy.String
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return &i, nil
}
