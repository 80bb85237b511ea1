package index

import (
	"time"

	"github.com/starford/othala/internal/dataview"
	"github.com/starford/othala/internal/extract"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, facts *extract.FactSet) error
	RemoveNote(path string) error
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	NotesByFolder(folder string) ([]NoteRow, error)
	RandomNote() (*NoteRow, error)

	SearchNotes(query string, filters *SearchFilters, limit int) ([]SearchResult, error)
	SearchEntities(kind, value string, limit int) ([]EntityResult, error)
	AllTags() ([]TagCount, error)
	AllMentions() ([]TagCount, error)

	SaveSearch(name, query string, filters *SearchFilters) (*SavedSearch, error)
	SavedSearches() ([]SavedSearch, error)
	DeleteSavedSearch(id string) error

	ExecuteQuery(q *dataview.SerializedQuery) *dataview.Result

	Backlinks(path string) ([]Backlink, error)
	GraphData() ([]GraphNode, []GraphLink, error)
	Orphans() ([]NoteSummary, error)
	BrokenLinks() ([]Backlink, error)
	UnlinkedMentions() ([]UnlinkedMention, error)
	PotentialMOCs(minLinks int) ([]GraphNode, error)
	Health() (*VaultHealth, error)

	UpsertCard(id, boardID, title string, updatedAt time.Time) error
	CardBacklinks(cardID string) ([]CardBacklink, error)

	AllPaths() (map[string]struct{}, error)
	AllContentHashes() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
