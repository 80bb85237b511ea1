//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// The FTS index is an external-content table over notes. Triggers keep it
// in lockstep with every insert, update, and delete, so fact replacement
// never has to touch it directly.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	title, content,
	content='notes',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS notes_ai AFTER INSERT ON notes BEGIN
	INSERT INTO notes_fts(rowid, title, content)
	VALUES (new.rowid, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS notes_ad AFTER DELETE ON notes BEGIN
	INSERT INTO notes_fts(notes_fts, rowid, title, content)
	VALUES ('delete', old.rowid, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS notes_au AFTER UPDATE ON notes BEGIN
	INSERT INTO notes_fts(notes_fts, rowid, title, content)
	VALUES ('delete', old.rowid, old.title, old.content);
	INSERT INTO notes_fts(rowid, title, content)
	VALUES (new.rowid, new.title, new.content);
END;
`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

type ftsHit struct {
	ID       string
	Path     string
	Title    string
	Content  string
	Score    float64
	Archived bool
}

// searchIndex runs a term search. Terms are OR-joined so any match counts;
// bm25 weights the title double. Scores are flipped positive (bm25 returns
// more-negative for better matches).
func searchIndex(conn *sql.DB, query string, includeArchived bool, limit int) ([]ftsHit, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	match := strings.Join(terms, " OR ")

	rows, err := conn.Query(`
		SELECT n.id, n.path, n.title, n.content,
		       bm25(notes_fts, 2.0, 1.0) AS score, n.archived
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		WHERE notes_fts MATCH ? AND (n.archived = 0 OR ? = 1)
		ORDER BY score
		LIMIT ?`, match, boolArg(includeArchived), limit)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		var archived int
		if err := rows.Scan(&h.ID, &h.Path, &h.Title, &h.Content, &h.Score, &archived); err != nil {
			return nil, err
		}
		h.Score = -h.Score
		h.Archived = archived != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// titleCandidates finds notes whose body contains the given title as an
// exact phrase, excluding the note itself. Used for unlinked mentions.
func titleCandidates(conn *sql.DB, title, excludeID string, limit int) ([]ftsHit, error) {
	phrase := `"` + strings.ReplaceAll(title, `"`, "") + `"`

	rows, err := conn.Query(`
		SELECT n.id, n.path, n.title, n.content, 0.0, n.archived
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		WHERE notes_fts MATCH ? AND n.id != ?
		LIMIT ?`, phrase, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("fts title candidates: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		var archived int
		if err := rows.Scan(&h.ID, &h.Path, &h.Title, &h.Content, &h.Score, &archived); err != nil {
			return nil, err
		}
		h.Archived = archived != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
