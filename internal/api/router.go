package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, db *index.DB, store storage.Provider, logger *slog.Logger, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, db, store, logger)
	// The SSE broker doubles as the reindex announcer; a plain handler
	// (or nil) leaves reindex announcements off.
	if ep, ok := sseHandler.(ReindexAnnouncer); ok {
		h.events = ep
	}

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD. Static segments are registered before the path wildcard.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/random", h.RandomNote)
	r.Post("/notes/rename", h.RenameNote)
	r.Patch("/notes/archive/*", h.SetArchived)
	r.Patch("/notes/star/*", h.SetStarred)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Search.
	r.Get("/search", h.Search)
	r.Post("/searches", h.SaveSearch)
	r.Get("/searches", h.SavedSearches)
	r.Delete("/searches/{id}", h.DeleteSavedSearch)
	r.Get("/entities", h.Entities)
	r.Get("/tags", h.Tags)
	r.Get("/mentions", h.Mentions)

	// Dataview queries.
	r.Post("/query", h.Query)

	// Graph and vault analysis.
	r.Get("/graph", h.Graph)
	r.Get("/graph/health", h.GraphHealth)
	r.Get("/graph/orphans", h.Orphans)
	r.Get("/graph/broken-links", h.BrokenLinks)
	r.Get("/graph/unlinked-mentions", h.UnlinkedMentions)
	r.Get("/graph/mocs", h.MOCs)
	r.Get("/backlinks", h.Backlinks)

	// Folders.
	r.Get("/folders/*", h.FolderNotes)

	// Kanban card registry for link resolution.
	r.Put("/cards/{id}", h.UpsertCard)
	r.Get("/cards/{id}/backlinks", h.CardBacklinks)

	// Maintenance.
	r.Post("/reindex", h.Reindex)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
