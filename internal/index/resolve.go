package index

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// defaultFolder is tried as an implicit prefix when resolving bare refs.
const defaultFolder = "notes"

// resolverIndex is an in-memory snapshot used to resolve link targets to
// note paths. All lookup maps are built in ascending modified order, so
// when two notes share a title, alias, or stem the most recently modified
// one wins.
type resolverIndex struct {
	paths   map[string]struct{}
	ids     map[string]string // path -> note id
	titles  map[string]string // lower(title) -> path
	aliases map[string]string // lower(alias) -> path
	stems   map[string]string // lower(filename stem) -> path
	ordered []string          // paths, modified_at ascending
}

func loadResolver(conn *sql.DB) (*resolverIndex, error) {
	ri := &resolverIndex{
		paths:   make(map[string]struct{}),
		ids:     make(map[string]string),
		titles:  make(map[string]string),
		aliases: make(map[string]string),
		stems:   make(map[string]string),
	}

	rows, err := conn.Query("SELECT id, path, title FROM notes ORDER BY modified_at ASC")
	if err != nil {
		return nil, fmt.Errorf("index: load resolver: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, path, title string
		if err := rows.Scan(&id, &path, &title); err != nil {
			return nil, err
		}
		ri.paths[path] = struct{}{}
		ri.ids[path] = id
		ri.ordered = append(ri.ordered, path)
		if title != "" {
			ri.titles[strings.ToLower(title)] = path
		}
		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if stem != "" {
			ri.stems[strings.ToLower(stem)] = path
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := conn.Query(`
		SELECT a.alias, n.path
		FROM aliases a JOIN notes n ON n.id = a.note_id
		ORDER BY n.modified_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("index: load aliases: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var alias, path string
		if err := arows.Scan(&alias, &path); err != nil {
			return nil, err
		}
		ri.aliases[strings.ToLower(alias)] = path
	}
	return ri, arows.Err()
}

// resolve maps one link reference to an indexed path. The chain, in order:
// exact path, path plus .md, the same pair under the default folder, then
// case-insensitive title, alias, filename stem, and finally a path-suffix
// scan preferring the newest note.
func (ri *resolverIndex) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	for _, cand := range []string{
		ref,
		ref + ".md",
		defaultFolder + "/" + ref,
		defaultFolder + "/" + ref + ".md",
	} {
		if _, ok := ri.paths[cand]; ok {
			return cand, true
		}
	}

	lower := strings.ToLower(ref)
	if p, ok := ri.titles[lower]; ok {
		return p, true
	}
	if p, ok := ri.aliases[lower]; ok {
		return p, true
	}
	if p, ok := ri.stems[lower]; ok {
		return p, true
	}

	// Newest first for suffix matches.
	for i := len(ri.ordered) - 1; i >= 0; i-- {
		pl := strings.ToLower(ri.ordered[i])
		if strings.HasSuffix(pl, "/"+lower) || strings.HasSuffix(pl, "/"+lower+".md") {
			return ri.ordered[i], true
		}
	}
	return "", false
}

// linkRow is one raw backlink row before resolution.
type linkRow struct {
	SourceID string
	Target   string
	Context  string
}

func loadLinkRows(conn *sql.DB) ([]linkRow, error) {
	rows, err := conn.Query("SELECT source_id, target_path, COALESCE(context, '') FROM backlinks")
	if err != nil {
		return nil, fmt.Errorf("index: load links: %w", err)
	}
	defer rows.Close()

	var out []linkRow
	for rows.Next() {
		var l linkRow
		if err := rows.Scan(&l.SourceID, &l.Target, &l.Context); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// noteInfo is the lightweight per-note record used by graph computations.
type noteInfo struct {
	ID         string
	Path       string
	Title      string
	Archived   bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

func loadNoteInfos(conn *sql.DB) ([]noteInfo, error) {
	rows, err := conn.Query(
		"SELECT id, path, title, archived, created_at, modified_at FROM notes ORDER BY modified_at DESC")
	if err != nil {
		return nil, fmt.Errorf("index: load notes: %w", err)
	}
	defer rows.Close()

	var out []noteInfo
	for rows.Next() {
		var n noteInfo
		var archived int
		var created, modified int64
		if err := rows.Scan(&n.ID, &n.Path, &n.Title, &archived, &created, &modified); err != nil {
			return nil, err
		}
		n.Archived = archived != 0
		n.CreatedAt = time.Unix(created, 0).UTC()
		n.ModifiedAt = time.Unix(modified, 0).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

// graphStats is the shared core behind graph endpoints: resolver, notes,
// raw links, and resolved in/out degree per note id.
type graphStats struct {
	resolver *resolverIndex
	notes    []noteInfo
	links    []linkRow
	outCount map[string]int
	inCount  map[string]int
}

func loadGraphStats(conn *sql.DB) (*graphStats, error) {
	resolver, err := loadResolver(conn)
	if err != nil {
		return nil, err
	}
	notes, err := loadNoteInfos(conn)
	if err != nil {
		return nil, err
	}
	links, err := loadLinkRows(conn)
	if err != nil {
		return nil, err
	}

	gs := &graphStats{
		resolver: resolver,
		notes:    notes,
		links:    links,
		outCount: make(map[string]int),
		inCount:  make(map[string]int),
	}
	for _, l := range links {
		gs.outCount[l.SourceID]++
		if path, ok := resolver.resolve(l.Target); ok {
			gs.inCount[resolver.ids[path]]++
		}
	}
	return gs, nil
}
