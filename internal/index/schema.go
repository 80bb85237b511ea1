// Package index provides the SQLite-backed note index: per-note fact
// storage with full-replace semantics, full-text search, the link-graph
// resolver, and dataview query execution.
package index

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id            TEXT PRIMARY KEY,
	path          TEXT UNIQUE NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL DEFAULT '',
	content_hash  TEXT NOT NULL DEFAULT '',
	frontmatter   TEXT,
	archived      INTEGER NOT NULL DEFAULT 0,
	starred       INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL DEFAULT 0,
	modified_at   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notes_path ON notes(path);
CREATE INDEX IF NOT EXISTS idx_notes_modified ON notes(modified_at);

CREATE TABLE IF NOT EXISTS tags (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	tag     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);
CREATE INDEX IF NOT EXISTS idx_tags_note ON tags(note_id);

CREATE TABLE IF NOT EXISTS entities (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id     TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	entity_type TEXT NOT NULL,
	value       TEXT NOT NULL,
	context     TEXT,
	line_number INTEGER
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_entities_value ON entities(value);
CREATE INDEX IF NOT EXISTS idx_entities_note ON entities(note_id);

CREATE TABLE IF NOT EXISTS code_blocks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	language   TEXT,
	content    TEXT NOT NULL,
	line_start INTEGER,
	line_end   INTEGER
);

CREATE INDEX IF NOT EXISTS idx_code_blocks_note ON code_blocks(note_id);
CREATE INDEX IF NOT EXISTS idx_code_blocks_lang ON code_blocks(language);

CREATE TABLE IF NOT EXISTS backlinks (
	source_id   TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	target_path TEXT NOT NULL,
	context     TEXT,
	PRIMARY KEY (source_id, target_path)
);

CREATE INDEX IF NOT EXISTS idx_backlinks_target ON backlinks(target_path);

CREATE TABLE IF NOT EXISTS card_backlinks (
	source_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	card_id   TEXT NOT NULL,
	context   TEXT,
	PRIMARY KEY (source_id, card_id)
);

CREATE INDEX IF NOT EXISTS idx_card_backlinks_card ON card_backlinks(card_id);

CREATE TABLE IF NOT EXISTS blocks (
	note_id     TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	block_id    TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	line_number INTEGER,
	PRIMARY KEY (note_id, block_id)
);

CREATE TABLE IF NOT EXISTS aliases (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	alias   TEXT NOT NULL,
	PRIMARY KEY (note_id, alias)
);

CREATE INDEX IF NOT EXISTS idx_aliases_alias ON aliases(alias);

CREATE TABLE IF NOT EXISTS saved_searches (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	query      TEXT NOT NULL,
	filters    TEXT,
	created_at INTEGER NOT NULL
);

-- Lookup table for the kanban collaborator. Card CRUD lives outside this
-- engine; only enough is stored here to resolve [[card:...]] references.
CREATE TABLE IF NOT EXISTS kanban_cards (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_kanban_cards_title ON kanban_cards(title);
`

// DB wraps a sql.DB with index-specific operations. One DB exists per open
// vault, and every read and write serializes through its mutex so a query
// can never observe a half-replaced fact set.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
