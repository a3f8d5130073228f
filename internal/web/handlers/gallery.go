package handlers

import (
	"log"
	"net/http"

	"github.com/mahir-majid/tiger-dorm-security/internal/config"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
)

// GalleryHandler exposes administrative gallery operations.
type GalleryHandler struct {
	cache *gallery.Cache
	cfg   *config.Config
}

// NewGalleryHandler creates a gallery admin handler.
func NewGalleryHandler(cache *gallery.Cache, cfg *config.Config) *GalleryHandler {
	return &GalleryHandler{cache: cache, cfg: cfg}
}

// StatsResponse describes the currently loaded gallery.
type StatsResponse struct {
	Entries    int    `json:"entries"`
	Dim        int    `json:"dim"`
	MatrixPath string `json:"matrix_path"`
	NamesPath  string `json:"names_path"`
}

// Stats handles GET /api/gallery/stats.
func (h *GalleryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	g := h.cache.Get()
	respondJSON(w, http.StatusOK, StatsResponse{
		Entries:    g.Len(),
		Dim:        g.Dim(),
		MatrixPath: h.cfg.Gallery.MatrixPath,
		NamesPath:  h.cfg.Gallery.NamesPath,
	})
}

// Reload handles POST /api/gallery/reload. Unlike the lazy serving-path
// load, errors here surface to the administrative caller.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	g, err := h.cache.Reload()
	if err != nil {
		log.Printf("gallery reload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "gallery reload failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": g.Len(),
	})
}
