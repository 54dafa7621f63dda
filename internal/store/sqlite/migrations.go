// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package sqlite

import (
	"database/sql"
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// The FTS triggers only index live rows: a soft delete removes the node from
// nodes_fts and a restore puts it back.
var migrations = []migration{
	{
		Version:     1,
		Description: "nodes, edges and the node full-text index",
		SQL: `
CREATE TABLE nodes (
	id          TEXT PRIMARY KEY,
	namespace   TEXT NOT NULL DEFAULT 'knowledge',
	type        TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	properties  TEXT,
	tags        TEXT,
	visibility  TEXT NOT NULL DEFAULT 'private',
	source_type TEXT,
	source_ref  TEXT,
	created_by  TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT,
	deleted_at  TEXT
);

CREATE INDEX idx_nodes_namespace ON nodes(namespace);
CREATE INDEX idx_nodes_type      ON nodes(type);
CREATE INDEX idx_nodes_deleted   ON nodes(deleted_at);

CREATE VIRTUAL TABLE nodes_fts USING fts5(
	name, description, tags,
	content='nodes', content_rowid='rowid'
);

CREATE TRIGGER nodes_ai AFTER INSERT ON nodes WHEN new.deleted_at IS NULL BEGIN
	INSERT INTO nodes_fts(rowid, name, description, tags)
	VALUES (new.rowid, new.name, coalesce(new.description, ''), coalesce(new.tags, ''));
END;

CREATE TRIGGER nodes_ad AFTER DELETE ON nodes WHEN old.deleted_at IS NULL BEGIN
	INSERT INTO nodes_fts(nodes_fts, rowid, name, description, tags)
	VALUES ('delete', old.rowid, old.name, coalesce(old.description, ''), coalesce(old.tags, ''));
END;

CREATE TRIGGER nodes_au_old AFTER UPDATE ON nodes WHEN old.deleted_at IS NULL BEGIN
	INSERT INTO nodes_fts(nodes_fts, rowid, name, description, tags)
	VALUES ('delete', old.rowid, old.name, coalesce(old.description, ''), coalesce(old.tags, ''));
END;

CREATE TRIGGER nodes_au_new AFTER UPDATE ON nodes WHEN new.deleted_at IS NULL BEGIN
	INSERT INTO nodes_fts(rowid, name, description, tags)
	VALUES (new.rowid, new.name, coalesce(new.description, ''), coalesce(new.tags, ''));
END;

CREATE TABLE edges (
	source_id  TEXT NOT NULL REFERENCES nodes(id),
	target_id  TEXT NOT NULL REFERENCES nodes(id),
	type       TEXT NOT NULL,
	weight     REAL NOT NULL DEFAULT 1.0 CHECK (weight >= 0 AND weight <= 1),
	properties TEXT,
	created_by TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY (source_id, target_id, type)
);

CREATE INDEX idx_edges_target ON edges(target_id);
CREATE INDEX idx_edges_type   ON edges(type);
`,
	},
	{
		Version:     2,
		Description: "experiences and the experience full-text index",
		SQL: `
CREATE TABLE experiences (
	id                  TEXT PRIMARY KEY,
	type                TEXT NOT NULL CHECK (type IN ('solution', 'pattern', 'decision', 'workaround', 'gotcha')),
	content             TEXT NOT NULL,
	context             TEXT,
	confidence          TEXT NOT NULL CHECK (confidence IN ('high', 'medium', 'low')),
	score               REAL NOT NULL DEFAULT 1.0,
	decay_rate          REAL NOT NULL,
	tags                TEXT,
	properties          TEXT,
	access_count        INTEGER NOT NULL DEFAULT 0,
	promoted_to_node_id TEXT,
	created_at          TEXT NOT NULL,
	last_accessed       TEXT
);

CREATE INDEX idx_experiences_type     ON experiences(type);
CREATE INDEX idx_experiences_promoted ON experiences(access_count, promoted_to_node_id);

CREATE VIRTUAL TABLE experiences_fts USING fts5(
	content, context, tags,
	content='experiences', content_rowid='rowid'
);

CREATE TRIGGER experiences_ai AFTER INSERT ON experiences BEGIN
	INSERT INTO experiences_fts(rowid, content, context, tags)
	VALUES (new.rowid, new.content, coalesce(new.context, ''), coalesce(new.tags, ''));
END;

CREATE TRIGGER experiences_ad AFTER DELETE ON experiences BEGIN
	INSERT INTO experiences_fts(experiences_fts, rowid, content, context, tags)
	VALUES ('delete', old.rowid, old.content, coalesce(old.context, ''), coalesce(old.tags, ''));
END;

CREATE TRIGGER experiences_au AFTER UPDATE OF content, context, tags ON experiences BEGIN
	INSERT INTO experiences_fts(experiences_fts, rowid, content, context, tags)
	VALUES ('delete', old.rowid, old.content, coalesce(old.context, ''), coalesce(old.tags, ''));
	INSERT INTO experiences_fts(rowid, content, context, tags)
	VALUES (new.rowid, new.content, coalesce(new.context, ''), coalesce(new.tags, ''));
END;
`,
	},
	{
		Version:     3,
		Description: "keyword routes with a normalised node list",
		SQL: `
CREATE TABLE routes (
	keyword    TEXT PRIMARY KEY,
	confidence REAL NOT NULL DEFAULT 0.5,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE route_nodes (
	keyword  TEXT NOT NULL REFERENCES routes(keyword) ON DELETE CASCADE,
	node_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (keyword, node_id)
);

CREATE INDEX idx_route_nodes_node ON route_nodes(node_id);
`,
	},
	{
		Version:     4,
		Description: "ideas, projects and progress log",
		SQL: `
CREATE TABLE ideas (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	category   TEXT,
	score      REAL,
	properties TEXT,
	visibility TEXT NOT NULL DEFAULT 'private',
	created_by TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT
);

CREATE INDEX idx_ideas_status   ON ideas(status);
CREATE INDEX idx_ideas_category ON ideas(category);

CREATE TABLE projects (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	phase           TEXT NOT NULL DEFAULT 'planning',
	goals           TEXT,
	stakeholders    TEXT,
	success_metrics TEXT,
	active          INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT
);

CREATE TABLE progress_entries (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	type       TEXT NOT NULL CHECK (type IN ('progress', 'failure')),
	action     TEXT NOT NULL,
	result     TEXT,
	next_step  TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX idx_progress_project ON progress_entries(project_id, created_at DESC);
`,
	},
	{
		Version:     5,
		Description: "activity log",
		SQL: `
CREATE TABLE activity_log (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	payload    TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX idx_activity_type    ON activity_log(type);
CREATE INDEX idx_activity_created ON activity_log(created_at DESC);
`,
	},
}

// migrate applies every migration not yet recorded in schema_versions, each
// in its own transaction.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_versions (
	version     INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// LatestSchemaVersion is the version a freshly migrated database reports.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return int(v.Int64), nil
}
