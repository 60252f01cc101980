package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/reloop/internal/store"
)

// CatalogHandler serves the public drop-off locations and blog.
type CatalogHandler struct {
	locationStore *store.LocationStore
	blogStore     *store.BlogStore
	logger        *slog.Logger
}

func NewCatalogHandler(ls *store.LocationStore, bs *store.BlogStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{locationStore: ls, blogStore: bs, logger: logger}
}

// Locations handles GET /api/locations?search=&type=
func (h *CatalogHandler) Locations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locations, err := h.locationStore.List(r.Context(), q.Get("search"), q.Get("type"))
	if err != nil {
		writeError(w, h.logger, err, "list locations")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(locations))
}

// Location handles GET /api/locations/{id}
func (h *CatalogHandler) Location(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	loc, err := h.locationStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "get location")
		return
	}
	if loc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "location not found"})
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// Posts handles GET /api/blog
func (h *CatalogHandler) Posts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blogStore.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "list posts")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(posts))
}

// Post handles GET /api/blog/{slug}
func (h *CatalogHandler) Post(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogStore.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err, "get post")
		return
	}
	if post == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "post not found"})
		return
	}
	writeJSON(w, http.StatusOK, post)
}
