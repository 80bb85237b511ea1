// Package models defines the domain types for Othala.
package models

import "time"

// Note represents an indexed document in the vault. Identity is derived
// from the vault-relative path, so a rename produces a new Note.
type Note struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content,omitempty"`
	ContentHash string         `json:"content_hash"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Archived    bool           `json:"archived"`
	Starred     bool           `json:"starred"`
	CreatedAt   time.Time      `json:"created_at"`
	ModifiedAt  time.Time      `json:"modified_at"`
}

// NoteMetadata is a lightweight representation returned by vault listings.
type NoteMetadata struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
