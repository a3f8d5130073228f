package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
	"github.com/mahir-majid/tiger-dorm-security/internal/web/handlers"
)

func (s *Server) setupRoutes(det detector.Detector, cache *gallery.Cache) {
	framesHandler := handlers.NewFramesHandler(det, cache, s.config.Match.Threshold)
	peopleHandler := handlers.NewPeopleHandler(cache)
	galleryHandler := handlers.NewGalleryHandler(cache, s.config)

	// Health check
	s.router.Get("/api/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		// Serving path
		r.Post("/process-frame", framesHandler.Process)
		r.Get("/people", peopleHandler.Search)

		// Administrative
		r.Get("/gallery/stats", galleryHandler.Stats)
		r.Post("/gallery/reload", galleryHandler.Reload)
	})
}
