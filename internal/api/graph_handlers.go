package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/dataview"
	"github.com/starford/othala/internal/index"
)

// Graph handles GET /api/graph.
//
//	@Summary		Get the knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		h.logger.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if links == nil {
		links = []index.GraphLink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// GraphHealth handles GET /api/graph/health.
func (h *Handler) GraphHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.db.Health()
	if err != nil {
		h.logger.Error("vault health failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, health)
}

// Orphans handles GET /api/graph/orphans.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.db.Orphans()
	if err != nil {
		h.logger.Error("orphans failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if orphans == nil {
		orphans = []index.NoteSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orphans": orphans})
}

// BrokenLinks handles GET /api/graph/broken-links.
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	broken, err := h.db.BrokenLinks()
	if err != nil {
		h.logger.Error("broken links failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if broken == nil {
		broken = []index.Backlink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"broken_links": broken})
}

// UnlinkedMentions handles GET /api/graph/unlinked-mentions.
func (h *Handler) UnlinkedMentions(w http.ResponseWriter, r *http.Request) {
	mentions, err := h.db.UnlinkedMentions()
	if err != nil {
		h.logger.Error("unlinked mentions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if mentions == nil {
		mentions = []index.UnlinkedMention{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mentions": mentions})
}

// MOCs handles GET /api/graph/mocs.
func (h *Handler) MOCs(w http.ResponseWriter, r *http.Request) {
	minLinks, _ := strconv.Atoi(r.URL.Query().Get("min_links"))
	mocs, err := h.db.PotentialMOCs(minLinks)
	if err != nil {
		h.logger.Error("mocs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if mocs == nil {
		mocs = []index.GraphNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mocs": mocs})
}

// Backlinks handles GET /api/backlinks?path=...
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		h.logger.Error("backlinks failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []index.Backlink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// Query handles POST /api/query. Always answers 200: compile and execution
// failures travel in the result envelope, not the HTTP status.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var q dataview.SerializedQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusOK, dataview.ErrorResult("", "invalid query JSON: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.db.ExecuteQuery(&q))
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.AllTags()
	if err != nil {
		h.logger.Error("tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if tags == nil {
		tags = []index.TagCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Mentions handles GET /api/mentions.
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	mentions, err := h.db.AllMentions()
	if err != nil {
		h.logger.Error("mentions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if mentions == nil {
		mentions = []index.TagCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mentions": mentions})
}

// Entities handles GET /api/entities with optional type and value filters.
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	value := r.URL.Query().Get("value")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entities, err := h.db.SearchEntities(kind, value, limit)
	if err != nil {
		h.logger.Error("entities failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entities == nil {
		entities = []index.EntityResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

// SaveSearch handles POST /api/searches.
func (h *Handler) SaveSearch(w http.ResponseWriter, r *http.Request) {
	var req SaveSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name and query are required"))
		return
	}
	saved, err := h.db.SaveSearch(req.Name, req.Query, req.Filters)
	if err != nil {
		h.logger.Error("save search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// SavedSearches handles GET /api/searches.
func (h *Handler) SavedSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := h.db.SavedSearches()
	if err != nil {
		h.logger.Error("saved searches failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if searches == nil {
		searches = []index.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": searches})
}

// DeleteSavedSearch handles DELETE /api/searches/{id}.
func (h *Handler) DeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteSavedSearch(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		h.logger.Error("delete saved search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertCard handles PUT /api/cards/{id}.
func (h *Handler) UpsertCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpsertCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	if err := h.db.UpsertCard(id, req.BoardID, req.Title, time.Now().UTC()); err != nil {
		h.logger.Error("upsert card failed", slog.String("card", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CardBacklinks handles GET /api/cards/{id}/backlinks.
func (h *Handler) CardBacklinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bl, err := h.db.CardBacklinks(id)
	if err != nil {
		h.logger.Error("card backlinks failed", slog.String("card", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []index.CardBacklink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// FolderNotes handles GET /api/folders/*.
func (h *Handler) FolderNotes(w http.ResponseWriter, r *http.Request) {
	folder := notePath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder is required"))
		return
	}
	rows, err := h.db.NotesByFolder(folder)
	if err != nil {
		h.logger.Error("folder notes failed", slog.String("folder", folder), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]NoteListItem, len(rows))
	for i, n := range rows {
		items[i] = NoteListItem{
			ID:        n.ID,
			Path:      n.Path,
			Title:     n.Title,
			Archived:  n.Archived,
			Starred:   n.Starred,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.ModifiedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": items})
}
