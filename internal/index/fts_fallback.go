//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Fallback when the binary is built without the sqlite_fts5 tag: plain
// LIKE scans over the notes table. Slower and unranked, but the search
// surface behaves the same.

func initFTS(conn *sql.DB) error {
	return nil
}

type ftsHit struct {
	ID       string
	Path     string
	Title    string
	Content  string
	Score    float64
	Archived bool
}

func searchIndex(conn *sql.DB, query string, includeArchived bool, limit int) ([]ftsHit, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var preds []string
	var args []any
	for _, t := range terms {
		preds = append(preds, "(n.title LIKE ? OR n.content LIKE ?)")
		pat := "%" + t + "%"
		args = append(args, pat, pat)
	}
	args = append(args, boolArg(includeArchived), limit)

	rows, err := conn.Query(`
		SELECT n.id, n.path, n.title, n.content, n.archived
		FROM notes n
		WHERE (`+strings.Join(preds, " OR ")+`) AND (n.archived = 0 OR ? = 1)
		ORDER BY n.modified_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("like search: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		var archived int
		if err := rows.Scan(&h.ID, &h.Path, &h.Title, &h.Content, &archived); err != nil {
			return nil, err
		}
		h.Score = 1.0
		h.Archived = archived != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func titleCandidates(conn *sql.DB, title, excludeID string, limit int) ([]ftsHit, error) {
	rows, err := conn.Query(`
		SELECT n.id, n.path, n.title, n.content, n.archived
		FROM notes n
		WHERE instr(lower(n.content), lower(?)) > 0 AND n.id != ?
		LIMIT ?`, title, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("like title candidates: %w", err)
	}
	defer rows.Close()

	var hits []ftsHit
	for rows.Next() {
		var h ftsHit
		var archived int
		if err := rows.Scan(&h.ID, &h.Path, &h.Title, &h.Content, &archived); err != nil {
			return nil, err
		}
		h.Archived = archived != 0
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
