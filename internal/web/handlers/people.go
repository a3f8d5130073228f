package handlers

import (
	"net/http"
	"sync"

	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
	"github.com/mahir-majid/tiger-dorm-security/internal/identity"
)

// peopleSearchLimit caps the number of results for a non-empty query.
const peopleSearchLimit = 50

// PeopleHandler serves name search over the loaded gallery's decoded
// display names.
type PeopleHandler struct {
	cache *gallery.Cache

	mu         sync.Mutex
	dirGallery *gallery.Gallery
	dir        *identity.Directory
}

// NewPeopleHandler creates a people handler.
func NewPeopleHandler(cache *gallery.Cache) *PeopleHandler {
	return &PeopleHandler{cache: cache}
}

// PeopleResponse lists matching display names.
type PeopleResponse struct {
	People []string `json:"people"`
}

// directory returns the name directory for the current gallery, rebuilding
// it only when the cached gallery has been swapped.
func (h *PeopleHandler) directory() *identity.Directory {
	g := h.cache.Get()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dir == nil || h.dirGallery != g {
		h.dir = identity.NewDirectory(g.Identifiers())
		h.dirGallery = g
	}
	return h.dir
}

// Search handles GET /api/people?q=. An empty query returns all names;
// otherwise matches are case- and diacritic-insensitive, capped at 50.
func (h *PeopleHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	dir := h.directory()

	var people []string
	if q == "" {
		people = dir.Names()
	} else {
		people = dir.Search(q, peopleSearchLimit)
	}

	respondJSON(w, http.StatusOK, PeopleResponse{People: people})
}
