package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/extract"
)

// NoteRow is the stored representation of one indexed note.
type NoteRow struct {
	ID          string
	Path        string
	Title       string
	Content     string
	ContentHash string
	Frontmatter map[string]any
	Archived    bool
	Starred     bool
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertNote writes the note row and replaces every derived fact for it in
// a single transaction. Re-indexing the same content is idempotent; the
// original created_at survives updates.
func (db *DB) UpsertNote(n NoteRow, facts *extract.FactSet) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback()

	var fmJSON any
	if len(n.Frontmatter) > 0 {
		raw, err := json.Marshal(n.Frontmatter)
		if err != nil {
			return fmt.Errorf("index: encode frontmatter: %w", err)
		}
		fmJSON = string(raw)
	}

	_, err = tx.Exec(`
		INSERT INTO notes (id, path, title, content, content_hash, frontmatter,
		                   archived, starred, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title        = excluded.title,
			content      = excluded.content,
			content_hash = excluded.content_hash,
			frontmatter  = excluded.frontmatter,
			archived     = excluded.archived,
			starred      = excluded.starred,
			modified_at  = excluded.modified_at`,
		n.ID, n.Path, n.Title, n.Content, n.ContentHash, fmJSON,
		boolArg(n.Archived), boolArg(n.Starred),
		n.CreatedAt.Unix(), n.ModifiedAt.Unix())
	if err != nil {
		return fmt.Errorf("index: upsert note %s: %w", n.Path, err)
	}

	if err := replaceDerived(tx, n.ID, facts); err != nil {
		return fmt.Errorf("index: replace facts for %s: %w", n.Path, err)
	}
	return tx.Commit()
}

// replaceDerived deletes and reinserts every fact row owned by the note.
// No diffing: the extractor output is authoritative.
func replaceDerived(tx *sql.Tx, noteID string, facts *extract.FactSet) error {
	for _, table := range []string{"tags", "entities", "code_blocks", "blocks", "aliases"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE note_id = ?", noteID); err != nil {
			return err
		}
	}
	for _, table := range []string{"backlinks", "card_backlinks"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE source_id = ?", noteID); err != nil {
			return err
		}
	}
	if facts == nil {
		return nil
	}

	for _, tag := range facts.Tags {
		if _, err := tx.Exec("INSERT INTO tags (note_id, tag) VALUES (?, ?)", noteID, tag); err != nil {
			return err
		}
	}
	for _, e := range facts.Entities {
		if _, err := tx.Exec(`
			INSERT INTO entities (note_id, entity_type, value, context, line_number)
			VALUES (?, ?, ?, ?, ?)`,
			noteID, e.Kind, e.Value, e.Context, e.Line); err != nil {
			return err
		}
	}
	for _, cb := range facts.CodeBlocks {
		if _, err := tx.Exec(`
			INSERT INTO code_blocks (note_id, language, content, line_start, line_end)
			VALUES (?, ?, ?, ?, ?)`,
			noteID, cb.Language, cb.Content, cb.StartLine, cb.EndLine); err != nil {
			return err
		}
	}
	for _, l := range facts.Links {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO backlinks (source_id, target_path, context)
			VALUES (?, ?, ?)`,
			noteID, l.Target, l.Context); err != nil {
			return err
		}
	}
	for _, cl := range facts.CardLinks {
		cardID := resolveCardRef(tx, cl.Ref)
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO card_backlinks (source_id, card_id, context)
			VALUES (?, ?, ?)`,
			noteID, cardID, cl.Context); err != nil {
			return err
		}
	}
	for _, b := range facts.Blocks {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO blocks (note_id, block_id, content, line_number)
			VALUES (?, ?, ?, ?)`,
			noteID, b.ID, b.Content, b.Line); err != nil {
			return err
		}
	}
	for _, a := range facts.Aliases {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO aliases (note_id, alias) VALUES (?, ?)`,
			noteID, a); err != nil {
			return err
		}
	}
	return nil
}

// resolveCardRef maps a [[card:...]] reference to a card id: exact id first,
// then case-insensitive title (newest card wins). Unresolvable refs are kept
// verbatim so they surface once the card exists.
func resolveCardRef(tx *sql.Tx, ref string) string {
	var id string
	err := tx.QueryRow("SELECT id FROM kanban_cards WHERE id = ?", ref).Scan(&id)
	if err == nil {
		return id
	}
	err = tx.QueryRow(`
		SELECT id FROM kanban_cards
		WHERE lower(title) = lower(?)
		ORDER BY updated_at DESC LIMIT 1`, ref).Scan(&id)
	if err == nil {
		return id
	}
	return ref
}

// RemoveNote deletes a note by path. Derived facts cascade.
func (db *DB) RemoveNote(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec("DELETE FROM notes WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("index: remove note %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

const noteColumns = "id, path, title, content, content_hash, frontmatter, archived, starred, created_at, modified_at"

func scanNote(row interface{ Scan(...any) error }) (*NoteRow, error) {
	var n NoteRow
	var fmJSON sql.NullString
	var archived, starred int
	var created, modified int64
	err := row.Scan(&n.ID, &n.Path, &n.Title, &n.Content, &n.ContentHash,
		&fmJSON, &archived, &starred, &created, &modified)
	if err != nil {
		return nil, err
	}
	n.Archived = archived != 0
	n.Starred = starred != 0
	n.CreatedAt = time.Unix(created, 0).UTC()
	n.ModifiedAt = time.Unix(modified, 0).UTC()
	if fmJSON.Valid && fmJSON.String != "" {
		if err := json.Unmarshal([]byte(fmJSON.String), &n.Frontmatter); err != nil {
			n.Frontmatter = nil
		}
	}
	return &n, nil
}

// GetNote returns the full note row for a vault path.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRow("SELECT "+noteColumns+" FROM notes WHERE path = ?", path)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note %s: %w", path, err)
	}
	return n, nil
}

var listSortColumns = map[string]string{
	"modified_at": "modified_at",
	"created_at":  "created_at",
	"title":       "title",
	"path":        "path",
}

// ListNotes pages through notes, newest-modified first by default. An
// optional tag narrows the set; sort names outside the whitelist fall back
// to modified_at.
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	col, ok := listSortColumns[strings.ToLower(sort)]
	if !ok {
		col = "modified_at"
	}
	dir := "DESC"
	if col == "title" || col == "path" {
		dir = "ASC"
	}

	where := ""
	var args []any
	if tag != "" {
		where = " WHERE id IN (SELECT note_id FROM tags WHERE tag = ?)"
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM notes"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	query := "SELECT " + noteColumns + " FROM notes" + where +
		" ORDER BY " + col + " " + dir + " LIMIT ? OFFSET ?"
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		n.Content = "" // listings stay light
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// NotesByFolder returns notes whose path sits under the given folder prefix.
func (db *DB) NotesByFolder(folder string) ([]NoteRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prefix := strings.Trim(folder, "/")
	rows, err := db.conn.Query(
		"SELECT "+noteColumns+" FROM notes WHERE path LIKE ? ORDER BY path",
		prefix+"/%")
	if err != nil {
		return nil, fmt.Errorf("index: notes by folder: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		n.Content = ""
		out = append(out, *n)
	}
	return out, rows.Err()
}

// RandomNote returns one non-archived note chosen uniformly.
func (db *DB) RandomNote() (*NoteRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRow(
		"SELECT " + noteColumns + " FROM notes WHERE archived = 0 ORDER BY RANDOM() LIMIT 1")
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: random note: %w", err)
	}
	return n, nil
}

// AllPaths returns the set of every indexed path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query("SELECT path FROM notes")
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllContentHashes maps every indexed path to its stored content hash,
// letting the watcher skip files that have not changed.
func (db *DB) AllContentHashes() (map[string]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query("SELECT path, content_hash FROM notes")
	if err != nil {
		return nil, fmt.Errorf("index: all hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return nil, err
		}
		out[p] = h
	}
	return out, rows.Err()
}

// UpsertCard records (or refreshes) a kanban card in the lookup table used
// for card-link resolution.
func (db *DB) UpsertCard(id, boardID, title string, updatedAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO kanban_cards (id, board_id, title, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			board_id = excluded.board_id,
			title = excluded.title,
			updated_at = excluded.updated_at`,
		id, boardID, title, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("index: upsert card %s: %w", id, err)
	}
	return nil
}

// CardBacklink is a note-to-card reference.
type CardBacklink struct {
	SourceID    string `json:"source_id"`
	SourcePath  string `json:"source_path"`
	SourceTitle string `json:"source_title"`
	Context     string `json:"context,omitempty"`
}

// CardBacklinks lists the notes referencing a card.
func (db *DB) CardBacklinks(cardID string) ([]CardBacklink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT cb.source_id, n.path, n.title, COALESCE(cb.context, '')
		FROM card_backlinks cb
		JOIN notes n ON n.id = cb.source_id
		WHERE cb.card_id = ?
		ORDER BY n.modified_at DESC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("index: card backlinks: %w", err)
	}
	defer rows.Close()

	var out []CardBacklink
	for rows.Next() {
		var b CardBacklink
		if err := rows.Scan(&b.SourceID, &b.SourcePath, &b.SourceTitle, &b.Context); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
