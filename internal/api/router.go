package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nisabo/internal/importer"
	"github.com/starford/nisabo/internal/noteservice"
	"github.com/starford/nisabo/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group and
// receives import progress. imp may be nil to disable POST /import.
func NewRouter(svc *noteservice.Service, imp *importer.Importer, events *sse.Broker, authEnabled bool, token string, logger *slog.Logger) chi.Router {
	h := NewHandler(svc, imp, events, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Patch("/", h.RenameNote)
		r.Delete("/", h.TrashNote)
		r.Put("/content", h.SaveContent)
		r.Post("/restore", h.RestoreNote)
		r.Get("/links", h.NoteLinks)
		r.Get("/versions", h.ListVersions)
		r.Get("/versions/{version}/content", h.ContentAt)
	})

	r.Post("/links", h.CreateLink)
	r.Get("/versions/{diffID}", h.GetVersion)

	// Trash.
	r.Get("/trash", h.ListTrash)
	r.Delete("/trash", h.EmptyTrash)
	r.Delete("/trash/{id}", h.PurgeNote)

	r.Get("/search", h.Search)
	r.Post("/import", h.StartImport)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
