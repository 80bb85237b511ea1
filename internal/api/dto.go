package api

import (
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// RenameNoteRequest is the request body for moving a note.
type RenameNoteRequest struct {
	OldPath string `json:"old_path" example:"notes/a.md" validate:"required"`
	NewPath string `json:"new_path" example:"notes/b.md" validate:"required"`
}

// FlagRequest toggles a boolean note flag.
type FlagRequest struct {
	Value bool `json:"value"`
}

// SaveSearchRequest persists a named search.
type SaveSearchRequest struct {
	Name    string               `json:"name" validate:"required"`
	Query   string               `json:"query" validate:"required"`
	Filters *index.SearchFilters `json:"filters,omitempty"`
}

// UpsertCardRequest registers a kanban card for link resolution.
type UpsertCardRequest struct {
	BoardID string `json:"board_id"`
	Title   string `json:"title" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}

// BacklinksResponse wraps incoming links for one note.
type BacklinksResponse struct {
	Backlinks []index.Backlink `json:"backlinks" validate:"required"`
}

// ReindexResponse reports a completed full reindex.
type ReindexResponse struct {
	Indexed int `json:"indexed" example:"128"`
}
