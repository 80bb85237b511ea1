// Package noteservice coordinates vault storage and the index so every
// mutation keeps both sides consistent: file first, index second.
package noteservice

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/extract"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID          string           `json:"id"`
	Path        string           `json:"path"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	ContentHash string           `json:"content_hash"`
	Tags        []string         `json:"tags"`
	Frontmatter map[string]any   `json:"frontmatter,omitempty"`
	Backlinks   []index.Backlink `json:"backlinks"`
	Archived    bool             `json:"archived"`
	Starred     bool             `json:"starred"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Archived  bool      `json:"archived"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetNote reads a note from storage, extracts its facts, and enriches the
// result with backlinks from the index.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.ContentHash(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return err
	}
	return s.db.RemoveNote(path)
}

// RenameNote moves a note to a new path. Identity is path-derived, so the
// old index entry is removed and the file reindexed under its new id.
func (s *Service) RenameNote(_ context.Context, oldPath, newPath string) (*NoteDetail, error) {
	if _, err := s.store.Read(newPath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if err := s.db.RemoveNote(oldPath); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	data, err := s.store.Read(newPath)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(newPath, data); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(newPath, data)
}

// SetArchived flips the archived front-matter flag and reindexes.
func (s *Service) SetArchived(ctx context.Context, path string, archived bool) (*NoteDetail, error) {
	return s.setFrontmatterFlag(ctx, path, "archived", archived)
}

// SetStarred flips the starred front-matter flag and reindexes.
func (s *Service) SetStarred(ctx context.Context, path string, starred bool) (*NoteDetail, error) {
	return s.setFrontmatterFlag(ctx, path, "starred", starred)
}

// setFrontmatterFlag rewrites the note with the flag set in front matter.
// The file on disk is the source of truth; the index follows.
func (s *Service) setFrontmatterFlag(_ context.Context, path, key string, value bool) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	fm, body := extract.SplitFrontmatter(data)
	if fm == nil {
		fm = map[string]any{}
	}
	if value {
		fm[key] = true
	} else {
		delete(fm, key)
	}

	updated, err := renderNote(fm, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, updated); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, updated); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, updated)
}

// renderNote reassembles a note from front matter and body. Notes with no
// front matter stay without a front-matter block.
func renderNote(fm map[string]any, body string) ([]byte, error) {
	if len(fm) == 0 {
		return []byte(body), nil
	}
	raw, err := yaml.Marshal(fm)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(raw)
	sb.WriteString("---\n")
	sb.WriteString(body)
	return []byte(sb.String()), nil
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			ID:        r.ID,
			Path:      r.Path,
			Title:     r.Title,
			Archived:  r.Archived,
			Starred:   r.Starred,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.ModifiedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, filters *index.SearchFilters, limit int) ([]index.SearchResult, error) {
	return s.db.SearchNotes(query, filters, limit)
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.GraphData()
}

// Backlinks returns every incoming link to the given path.
func (s *Service) Backlinks(_ context.Context, path string) ([]index.Backlink, error) {
	return s.db.Backlinks(path)
}

// IndexFile extracts data and upserts it into the index.
// Exported so that sync and watcher paths can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	meta, err := s.store.Stat(path)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, path, data, meta)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading
// the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	fm, _ := extract.SplitFrontmatter(data)
	facts := extract.Extract(path, string(data), fm)
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		ID:          checksum.NoteID(path),
		Path:        path,
		Title:       facts.Title,
		Content:     string(data),
		ContentHash: checksum.ContentHash(data),
		Tags:        nonNilSlice(facts.Tags),
		Frontmatter: fm,
		Backlinks:   nonNilSlice(bl),
		Archived:    facts.Archived,
		Starred:     facts.Starred,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
