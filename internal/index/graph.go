package index

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/othala/internal/extract"
)

const (
	// mentionMinTitleRunes guards unlinked-mention scans against short,
	// noisy titles.
	mentionMinTitleRunes = 3
	// mentionCandidateCap bounds candidates fetched per note title.
	mentionCandidateCap = 50
	// mentionContextWidth is the byte padding around a found mention.
	mentionContextWidth = 40

	defaultMOCThreshold = 5
)

// Backlink is one incoming link to a note, with the context captured at
// extraction time.
type Backlink struct {
	SourceID    string `json:"source_id"`
	SourcePath  string `json:"source_path"`
	SourceTitle string `json:"source_title"`
	TargetRef   string `json:"target_ref"`
	Context     string `json:"context,omitempty"`
	Archived    bool   `json:"archived"`
}

// Backlinks returns every note linking to the given path, resolving fuzzy
// references (title, alias, stem) against the current index.
func (db *DB) Backlinks(path string) ([]Backlink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	resolver, err := loadResolver(db.conn)
	if err != nil {
		return nil, err
	}
	links, err := loadLinkRows(db.conn)
	if err != nil {
		return nil, err
	}
	notes, err := loadNoteInfos(db.conn)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]noteInfo, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	var out []Backlink
	for _, l := range links {
		resolved, ok := resolver.resolve(l.Target)
		if !ok || resolved != path {
			continue
		}
		src, ok := byID[l.SourceID]
		if !ok {
			continue
		}
		out = append(out, Backlink{
			SourceID:    src.ID,
			SourcePath:  src.Path,
			SourceTitle: src.Title,
			TargetRef:   l.Target,
			Context:     l.Context,
			Archived:    src.Archived,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	return out, nil
}

// GraphNode is one note in the rendered link graph.
type GraphNode struct {
	ID            string `json:"id"`
	Path          string `json:"path"`
	Title         string `json:"title"`
	LinkCount     int    `json:"link_count"`
	BacklinkCount int    `json:"backlink_count"`
	Archived      bool   `json:"archived"`
}

// GraphLink is one resolved edge between two notes.
type GraphLink struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Context string `json:"context,omitempty"`
}

// GraphData returns every note as a node plus every resolvable link as an
// edge. Unresolvable links are omitted from the edge set but still count
// toward the source's outgoing degree.
func (db *DB) GraphData() ([]GraphNode, []GraphLink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	gs, err := loadGraphStats(db.conn)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, 0, len(gs.notes))
	for _, n := range gs.notes {
		nodes = append(nodes, GraphNode{
			ID:            n.ID,
			Path:          n.Path,
			Title:         n.Title,
			LinkCount:     gs.outCount[n.ID],
			BacklinkCount: gs.inCount[n.ID],
			Archived:      n.Archived,
		})
	}

	var edges []GraphLink
	for _, l := range gs.links {
		path, ok := gs.resolver.resolve(l.Target)
		if !ok {
			continue
		}
		edges = append(edges, GraphLink{
			Source:  l.SourceID,
			Target:  gs.resolver.ids[path],
			Context: l.Context,
		})
	}
	return nodes, edges, nil
}

// NoteSummary is a note reference without content, used in graph reports.
type NoteSummary struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

func summaryOf(n noteInfo) NoteSummary {
	return NoteSummary{
		ID:         n.ID,
		Path:       n.Path,
		Title:      n.Title,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
}

// Orphans lists notes with no incoming and no outgoing links, newest first.
func (db *DB) Orphans() ([]NoteSummary, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	gs, err := loadGraphStats(db.conn)
	if err != nil {
		return nil, err
	}

	var out []NoteSummary
	for _, n := range gs.notes {
		if gs.outCount[n.ID] == 0 && gs.inCount[n.ID] == 0 {
			out = append(out, summaryOf(n))
		}
	}
	return out, nil
}

// BrokenLinks lists links whose target resolves to no indexed note.
func (db *DB) BrokenLinks() ([]Backlink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	resolver, err := loadResolver(db.conn)
	if err != nil {
		return nil, err
	}
	links, err := loadLinkRows(db.conn)
	if err != nil {
		return nil, err
	}
	notes, err := loadNoteInfos(db.conn)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]noteInfo, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	var out []Backlink
	for _, l := range links {
		if _, ok := resolver.resolve(l.Target); ok {
			continue
		}
		src, ok := byID[l.SourceID]
		if !ok {
			continue
		}
		out = append(out, Backlink{
			SourceID:    src.ID,
			SourcePath:  src.Path,
			SourceTitle: src.Title,
			TargetRef:   l.Target,
			Context:     l.Context,
			Archived:    src.Archived,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourcePath != out[j].SourcePath {
			return out[i].SourcePath < out[j].SourcePath
		}
		return out[i].TargetRef < out[j].TargetRef
	})
	return out, nil
}

// PotentialMOCs lists notes whose outgoing link count meets the threshold,
// hub notes that likely act as maps of content. minLinks <= 0 uses the
// default threshold.
func (db *DB) PotentialMOCs(minLinks int) ([]GraphNode, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if minLinks <= 0 {
		minLinks = defaultMOCThreshold
	}
	gs, err := loadGraphStats(db.conn)
	if err != nil {
		return nil, err
	}

	var out []GraphNode
	for _, n := range gs.notes {
		if gs.outCount[n.ID] < minLinks {
			continue
		}
		out = append(out, GraphNode{
			ID:            n.ID,
			Path:          n.Path,
			Title:         n.Title,
			LinkCount:     gs.outCount[n.ID],
			BacklinkCount: gs.inCount[n.ID],
			Archived:      n.Archived,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LinkCount != out[j].LinkCount {
			return out[i].LinkCount > out[j].LinkCount
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// UnlinkedMention is a note title appearing verbatim in another note's body
// without a link between the two.
type UnlinkedMention struct {
	NoteID           string `json:"note_id"`
	NotePath         string `json:"note_path"`
	NoteTitle        string `json:"note_title"`
	MentionedInID    string `json:"mentioned_in_id"`
	MentionedInPath  string `json:"mentioned_in_path"`
	MentionedInTitle string `json:"mentioned_in_title"`
	Context          string `json:"context"`
}

// UnlinkedMentions scans for notes whose titles appear in other notes that
// do not already link to them. Titles shorter than three runes are skipped.
func (db *DB) UnlinkedMentions() ([]UnlinkedMention, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	resolver, err := loadResolver(db.conn)
	if err != nil {
		return nil, err
	}
	links, err := loadLinkRows(db.conn)
	if err != nil {
		return nil, err
	}
	notes, err := loadNoteInfos(db.conn)
	if err != nil {
		return nil, err
	}

	// Resolved outgoing targets per source note.
	linked := make(map[string]map[string]struct{})
	for _, l := range links {
		path, ok := resolver.resolve(l.Target)
		if !ok {
			continue
		}
		set := linked[l.SourceID]
		if set == nil {
			set = make(map[string]struct{})
			linked[l.SourceID] = set
		}
		set[path] = struct{}{}
	}

	var out []UnlinkedMention
	for _, note := range notes {
		title := strings.TrimSpace(note.Title)
		if utf8.RuneCountInString(title) < mentionMinTitleRunes {
			continue
		}

		candidates, err := titleCandidates(db.conn, title, note.ID, mentionCandidateCap)
		if err != nil {
			return nil, err
		}
		for _, cand := range candidates {
			if _, already := linked[cand.ID][note.Path]; already {
				continue
			}
			pos, end := extract.FoldIndex(cand.Content, title)
			if pos < 0 {
				continue
			}
			out = append(out, UnlinkedMention{
				NoteID:           note.ID,
				NotePath:         note.Path,
				NoteTitle:        note.Title,
				MentionedInID:    cand.ID,
				MentionedInPath:  cand.Path,
				MentionedInTitle: cand.Title,
				Context:          extract.ContextWindow(cand.Content, pos, end, mentionContextWidth),
			})
		}
	}
	return out, nil
}

// VaultHealth is the aggregate index report.
type VaultHealth struct {
	TotalNotes       int           `json:"total_notes"`
	ArchivedNotes    int           `json:"archived_notes"`
	TotalLinks       int           `json:"total_links"`
	AvgLinksPerNote  float64       `json:"avg_links_per_note"`
	BrokenLinks      int           `json:"broken_links"`
	OrphanCount      int           `json:"orphan_count"`
	TotalTags        int           `json:"total_tags"`
	TotalEntities    int           `json:"total_entities"`
	TotalCodeBlocks  int           `json:"total_code_blocks"`
	MostConnected    []GraphNode   `json:"most_connected"`
	RecentlyModified []NoteSummary `json:"recently_modified"`
}

// Health computes the aggregate vault report in one pass over the graph.
func (db *DB) Health() (*VaultHealth, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	gs, err := loadGraphStats(db.conn)
	if err != nil {
		return nil, err
	}

	h := &VaultHealth{
		TotalNotes: len(gs.notes),
		TotalLinks: len(gs.links),
	}
	if h.TotalNotes > 0 {
		h.AvgLinksPerNote = float64(h.TotalLinks) / float64(h.TotalNotes)
	}
	for _, l := range gs.links {
		if _, ok := gs.resolver.resolve(l.Target); !ok {
			h.BrokenLinks++
		}
	}

	connected := make([]GraphNode, 0, len(gs.notes))
	for _, n := range gs.notes {
		if n.Archived {
			h.ArchivedNotes++
		}
		out, in := gs.outCount[n.ID], gs.inCount[n.ID]
		if out == 0 && in == 0 {
			h.OrphanCount++
		}
		connected = append(connected, GraphNode{
			ID:            n.ID,
			Path:          n.Path,
			Title:         n.Title,
			LinkCount:     out,
			BacklinkCount: in,
			Archived:      n.Archived,
		})
	}
	sort.Slice(connected, func(i, j int) bool {
		di := connected[i].LinkCount + connected[i].BacklinkCount
		dj := connected[j].LinkCount + connected[j].BacklinkCount
		if di != dj {
			return di > dj
		}
		return connected[i].Path < connected[j].Path
	})
	if len(connected) > 5 {
		connected = connected[:5]
	}
	h.MostConnected = connected

	// loadNoteInfos already orders newest first.
	for i, n := range gs.notes {
		if i == 10 {
			break
		}
		h.RecentlyModified = append(h.RecentlyModified, summaryOf(n))
	}

	counts := map[string]*int{
		"SELECT COUNT(DISTINCT tag) FROM tags": &h.TotalTags,
		"SELECT COUNT(*) FROM entities":        &h.TotalEntities,
		"SELECT COUNT(*) FROM code_blocks":     &h.TotalCodeBlocks,
	}
	for q, dst := range counts {
		if err := db.conn.QueryRow(q).Scan(dst); err != nil {
			return nil, fmt.Errorf("index: health count: %w", err)
		}
	}
	return h, nil
}
