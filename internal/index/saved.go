package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
)

// SavedSearch is a persisted query with its filters.
type SavedSearch struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Query     string         `json:"query"`
	Filters   *SearchFilters `json:"filters,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SaveSearch persists a named search and returns it with its generated id.
func (db *DB) SaveSearch(name, query string, filters *SearchFilters) (*SavedSearch, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s := &SavedSearch{
		ID:        uuid.NewString(),
		Name:      name,
		Query:     query,
		Filters:   filters,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	var filtersJSON any
	if filters != nil {
		raw, err := json.Marshal(filters)
		if err != nil {
			return nil, fmt.Errorf("index: encode filters: %w", err)
		}
		filtersJSON = string(raw)
	}

	_, err := db.conn.Exec(`
		INSERT INTO saved_searches (id, name, query, filters, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Query, filtersJSON, s.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("index: save search: %w", err)
	}
	return s, nil
}

// SavedSearches lists every saved search, newest first.
func (db *DB) SavedSearches() ([]SavedSearch, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT id, name, query, filters, created_at
		FROM saved_searches ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("index: list saved searches: %w", err)
	}
	defer rows.Close()

	var out []SavedSearch
	for rows.Next() {
		var s SavedSearch
		var filtersJSON sql.NullString
		var created int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Query, &filtersJSON, &created); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		if filtersJSON.Valid && filtersJSON.String != "" {
			var f SearchFilters
			if err := json.Unmarshal([]byte(filtersJSON.String), &f); err == nil {
				s.Filters = &f
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSavedSearch removes a saved search by id.
func (db *DB) DeleteSavedSearch(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec("DELETE FROM saved_searches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("index: delete saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
