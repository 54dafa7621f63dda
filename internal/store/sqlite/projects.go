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

const projectColumns = `id, name, phase, goals, stakeholders, success_metrics, active, created_at, updated_at`

type projectStore struct {
	db *sql.DB
}

func (s *projectStore) Insert(ctx context.Context, p *store.Project) error {
	if p.ID == "" || strings.TrimSpace(p.Name) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "project: ID and Name are required")
	}
	if !p.Phase.Valid() {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "project: invalid phase %q", p.Phase)
	}

	goals, stakeholders, metrics, err := encodeProjectLists(p.Goals, p.Stakeholders, p.SuccessMetrics)
	if err != nil {
		return kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding project lists", kairnerr.FieldProjectID(p.ID))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Phase), goals, stakeholders, metrics, p.Active,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kairnerr.Errorf(kairnerr.CodeStoreConflict, "project %s: %w", p.ID, store.ErrConflict)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "inserting project %s: %w", p.ID, err)
	}
	return nil
}

func (s *projectStore) Get(ctx context.Context, id string) (*store.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "project %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "getting project %s: %w", id, err)
	}
	return p, nil
}

func (s *projectStore) Update(ctx context.Context, id string, patch store.ProjectPatch) (*store.Project, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Phase != nil {
		if !patch.Phase.Valid() {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "project: invalid phase %q", *patch.Phase)
		}
		sets = append(sets, "phase = ?")
		args = append(args, string(*patch.Phase))
	}
	lists := []struct {
		col string
		v   []string
	}{
		{"goals", patch.Goals},
		{"stakeholders", patch.Stakeholders},
		{"success_metrics", patch.SuccessMetrics},
	}
	for _, l := range lists {
		if l.v == nil {
			continue
		}
		enc, err := encodeList(l.v)
		if err != nil {
			return nil, kairnerr.Wrap(err, kairnerr.CodeStoreInvalidInput, "encoding project "+l.col, kairnerr.FieldProjectID(id))
		}
		sets = append(sets, l.col+" = ?")
		args = append(args, enc)
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(updatedAt), id)

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "updating project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "project %s: %w", id, store.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *projectStore) List(ctx context.Context, activeOnly bool) ([]*store.Project, error) {
	q := `SELECT ` + projectColumns + ` FROM projects`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "listing projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*store.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating projects: %w", err)
	}
	return projects, nil
}

func (s *projectStore) SetActive(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "beginning activate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "checking project %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE projects SET active = 0 WHERE active = 1 AND id != ?`, id); err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "clearing active projects: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET active = 1, updated_at = ? WHERE id = ?`, formatTime(at), id); err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "activating project %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "committing activate tx: %w", err)
	}
	return true, nil
}

func (s *projectStore) AppendProgress(ctx context.Context, entry *store.ProgressEntry) error {
	if entry.ID == "" || entry.ProjectID == "" || strings.TrimSpace(entry.Action) == "" {
		return kairnerr.New(kairnerr.CodeStoreInvalidInput, "progress: ID, ProjectID and Action are required")
	}
	if !entry.Type.Valid() {
		return kairnerr.Errorf(kairnerr.CodeStoreInvalidInput, "progress: invalid type %q", entry.Type)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress_entries (id, project_id, type, action, result, next_step, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, string(entry.Type), entry.Action,
		nullString(entry.Result), nullString(entry.NextStep), formatTime(entry.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return kairnerr.Errorf(kairnerr.CodeStoreEntityNotFound, "project %s: %w", entry.ProjectID, store.ErrNotFound)
		}
		return kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "appending progress to %s: %w", entry.ProjectID, err)
	}
	return nil
}

// ListProgress returns the log newest first.
func (s *projectStore) ListProgress(ctx context.Context, q store.ProgressQuery) ([]*store.ProgressEntry, error) {
	query := `SELECT id, project_id, type, action, result, next_step, created_at
FROM progress_entries WHERE project_id = ?`
	args := []any{q.ProjectID}
	if q.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(q.Type))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(q.Limit, 10))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "listing progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*store.ProgressEntry
	for rows.Next() {
		var (
			e                store.ProgressEntry
			typ              string
			result, nextStep sql.NullString
			createdAt        sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &typ, &e.Action, &result, &nextStep, &createdAt); err != nil {
			return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "scanning progress row: %w", err)
		}
		e.Type = store.ProgressType(typ)
		e.Result = result.String
		e.NextStep = nextStep.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "iterating progress: %w", err)
	}
	return entries, nil
}

func (s *projectStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return 0, kairnerr.Errorf(kairnerr.CodeStoreDatabaseFailure, "counting projects: %w", err)
	}
	return count, nil
}

func encodeProjectLists(goals, stakeholders, metrics []string) (g, s, m sql.NullString, err error) {
	if g, err = encodeList(goals); err != nil {
		return
	}
	if s, err = encodeList(stakeholders); err != nil {
		return
	}
	m, err = encodeList(metrics)
	return
}

func scanProject(sc rowScanner) (*store.Project, error) {
	var (
		p                            store.Project
		phase                        string
		goals, stakeholders, metrics sql.NullString
		createdAt, updatedAt         sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.Name, &phase, &goals, &stakeholders, &metrics,
		&p.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.Goals, err = decodeList(goals); err != nil {
		return nil, fmt.Errorf("project %s goals: %w", p.ID, err)
	}
	if p.Stakeholders, err = decodeList(stakeholders); err != nil {
		return nil, fmt.Errorf("project %s stakeholders: %w", p.ID, err)
	}
	if p.SuccessMetrics, err = decodeList(metrics); err != nil {
		return nil, fmt.Errorf("project %s success metrics: %w", p.ID, err)
	}
	p.Phase = store.ProjectPhase(phase)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
