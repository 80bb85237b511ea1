package index

import (
	"fmt"
	"strings"

	"github.com/starford/othala/internal/extract"
)

const (
	defaultSearchLimit = 20
	snippetWidth       = 150
	codeSnippetWidth   = 100
)

// SearchFilters narrow a search beyond the query string itself.
type SearchFilters struct {
	Folders         []string `json:"folders,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	CodeOnly        bool     `json:"code_only,omitempty"`
	IncludeArchived bool     `json:"include_archived,omitempty"`
}

// SearchMatch describes where a result matched.
type SearchMatch struct {
	Field   string `json:"field"`
	Context string `json:"context,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Title    string        `json:"title"`
	Snippet  string        `json:"snippet"`
	Score    float64       `json:"score"`
	Archived bool          `json:"archived"`
	Matches  []SearchMatch `json:"matches,omitempty"`
}

// parseSearchQuery strips the recognized inline prefixes from a raw query,
// folding them into the filters. "code:" flips the search into code-block
// mode; "tag:", "folder:" and "type:" accumulate filter terms.
func parseSearchQuery(raw string, filters *SearchFilters) string {
	var kept []string
	for _, tok := range strings.Fields(raw) {
		lower := strings.ToLower(tok)
		switch {
		case lower == "code:" || strings.HasPrefix(lower, "code:"):
			filters.CodeOnly = true
			if rest := tok[len("code:"):]; rest != "" {
				kept = append(kept, rest)
			}
		case strings.HasPrefix(lower, "tag:"):
			if rest := strings.TrimPrefix(tok[len("tag:"):], "#"); rest != "" {
				filters.Tags = append(filters.Tags, rest)
			}
		case strings.HasPrefix(lower, "folder:"):
			if rest := tok[len("folder:"):]; rest != "" {
				filters.Folders = append(filters.Folders, strings.Trim(rest, "/"))
			}
		case strings.HasPrefix(lower, "type:"):
			if tok[len("type:"):] == "code" {
				filters.CodeOnly = true
			}
		default:
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// SearchNotes runs a full-text search with optional filters. Archived notes
// are excluded unless the filters opt in.
func (db *DB) SearchNotes(query string, filters *SearchFilters, limit int) ([]SearchResult, error) {
	if filters == nil {
		filters = &SearchFilters{}
	}
	clean := parseSearchQuery(query, filters)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if filters.CodeOnly {
		return db.searchCodeBlocks(clean, filters, limit)
	}

	hits, err := searchIndex(db.conn, clean, filters.IncludeArchived, limit*2)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if !matchesFolders(h.Path, filters.Folders) {
			continue
		}
		results = append(results, SearchResult{
			ID:       h.ID,
			Path:     h.Path,
			Title:    h.Title,
			Snippet:  makeSnippet(h.Content, clean, snippetWidth),
			Score:    h.Score,
			Archived: h.Archived,
			Matches:  []SearchMatch{{Field: "content"}},
		})
	}

	results, err = db.filterByTags(results, filters.Tags)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// searchCodeBlocks matches the query against stored code blocks only.
// "*" in the query acts as a wildcard.
func (db *DB) searchCodeBlocks(query string, filters *SearchFilters, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	pattern := "%" + strings.ReplaceAll(query, "*", "%") + "%"

	rows, err := db.conn.Query(`
		SELECT n.id, n.path, n.title, n.archived,
		       COALESCE(cb.language, ''), cb.content
		FROM code_blocks cb
		JOIN notes n ON n.id = cb.note_id
		WHERE cb.content LIKE ? AND (n.archived = 0 OR ? = 1)
		ORDER BY n.modified_at DESC
		LIMIT ?`, pattern, boolArg(filters.IncludeArchived), limit)
	if err != nil {
		return nil, fmt.Errorf("index: code search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var archived int
		var lang, code string
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &archived, &lang, &code); err != nil {
			return nil, err
		}
		if !matchesFolders(r.Path, filters.Folders) {
			continue
		}
		r.Archived = archived != 0
		r.Score = 1.0
		r.Snippet = makeSnippet(code, query, codeSnippetWidth)
		r.Matches = []SearchMatch{{
			Field:   "code_block",
			Context: "```" + lang + "\n" + extract.TruncateRunes(code, 200),
		}}
		results = append(results, r)
	}
	return results, rows.Err()
}

// filterByTags drops results lacking any of the required tags. One batched
// membership query per search, not one per result.
func (db *DB) filterByTags(results []SearchResult, tags []string) ([]SearchResult, error) {
	if len(tags) == 0 || len(results) == 0 {
		return results, nil
	}

	args := make([]any, 0, len(results)+len(tags))
	idPh := make([]string, len(results))
	for i, r := range results {
		idPh[i] = "?"
		args = append(args, r.ID)
	}
	tagPh := make([]string, len(tags))
	for i, t := range tags {
		tagPh[i] = "?"
		args = append(args, t)
	}

	rows, err := db.conn.Query(`
		SELECT DISTINCT note_id FROM tags
		WHERE note_id IN (`+strings.Join(idPh, ",")+`)
		  AND tag IN (`+strings.Join(tagPh, ",")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: tag filter: %w", err)
	}
	defer rows.Close()

	tagged := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tagged[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, r := range results {
		if _, ok := tagged[r.ID]; ok {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func matchesFolders(path string, folders []string) bool {
	if len(folders) == 0 {
		return true
	}
	for _, f := range folders {
		if strings.HasPrefix(path, strings.Trim(f, "/")+"/") {
			return true
		}
	}
	return false
}

// makeSnippet extracts a window of content around the first occurrence of
// any query term, with ellipses when the window is clipped. Falls back to
// the head of the content when nothing matches.
func makeSnippet(content, query string, width int) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	pos, end := -1, 0
	for _, term := range strings.Fields(query) {
		if s, e := extract.FoldIndex(content, term); s >= 0 && (pos < 0 || s < pos) {
			pos, end = s, e
		}
	}

	var snippet string
	var clippedStart, clippedEnd bool
	if pos < 0 {
		snippet = extract.TruncateRunes(content, width)
		clippedEnd = len(snippet) < len(content)
	} else {
		start, stop := extract.WindowBounds(content, pos, end, width/2)
		snippet = content[start:stop]
		clippedStart = start > 0
		clippedEnd = stop < len(content)
	}

	snippet = strings.Join(strings.Fields(snippet), " ")
	if clippedStart {
		snippet = "..." + snippet
	}
	if clippedEnd {
		snippet += "..."
	}
	return snippet
}

// EntityResult is one extracted-entity hit with its owning note.
type EntityResult struct {
	Kind      string `json:"entity_type"`
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Line      int    `json:"line_number"`
	NotePath  string `json:"note_path"`
	NoteTitle string `json:"note_title"`
}

// SearchEntities lists entities, optionally narrowed by kind and by a
// substring of the value.
func (db *DB) SearchEntities(kind, value string, limit int) ([]EntityResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	where := []string{"1 = 1"}
	var args []any
	if kind != "" {
		where = append(where, "e.entity_type = ?")
		args = append(args, kind)
	}
	if value != "" {
		where = append(where, "e.value LIKE ?")
		args = append(args, "%"+value+"%")
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT e.entity_type, e.value, COALESCE(e.context, ''), COALESCE(e.line_number, 0),
		       n.path, n.title
		FROM entities e
		JOIN notes n ON n.id = e.note_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY e.value, n.path
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: entity search: %w", err)
	}
	defer rows.Close()

	var out []EntityResult
	for rows.Next() {
		var e EntityResult
		if err := rows.Scan(&e.Kind, &e.Value, &e.Context, &e.Line, &e.NotePath, &e.NoteTitle); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TagCount pairs a tag with the number of notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// AllTags returns every distinct tag with its note count, most used first.
func (db *DB) AllTags() ([]TagCount, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT tag, COUNT(DISTINCT note_id)
		FROM tags GROUP BY tag
		ORDER BY COUNT(DISTINCT note_id) DESC, tag`)
	if err != nil {
		return nil, fmt.Errorf("index: all tags: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var t TagCount
		if err := rows.Scan(&t.Tag, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllMentions returns every distinct @mention value with its usage count.
func (db *DB) AllMentions() ([]TagCount, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT value, COUNT(*)
		FROM entities WHERE entity_type = 'mention'
		GROUP BY value
		ORDER BY COUNT(*) DESC, value`)
	if err != nil {
		return nil, fmt.Errorf("index: all mentions: %w", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var t TagCount
		if err := rows.Scan(&t.Tag, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
