package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nisabo/internal/checksum"
	"github.com/starford/nisabo/internal/importer"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/noteservice"
	"github.com/starford/nisabo/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	imp    *importer.Importer
	events *sse.Broker
	logger *slog.Logger
}

// NewHandler creates a new Handler. imp and events may be nil.
func NewHandler(svc *noteservice.Service, imp *importer.Importer, events *sse.Broker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, imp: imp, events: events, logger: logger}
}

func (h *Handler) noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return 0, false
	}
	return id, true
}

func writeNote(w http.ResponseWriter, status int, note *NoteDetail) {
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, status, note)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		Live notes as a parent/child forest
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.Tree(r.Context())
	if err != nil {
		writeError(w, h.logger, "list notes failed", err)
		return
	}
	if tree == nil {
		tree = []*models.NoteNode{}
	}
	writeJSON(w, http.StatusOK, TreeResponse{Notes: tree})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get note failed", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note, optionally as the child of another
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Name, req.Content, req.ParentID)
	if err != nil {
		writeError(w, h.logger, "create note failed", err)
		return
	}
	writeNote(w, http.StatusCreated, note)
}

// RenameNote handles PATCH /api/notes/{id}.
//
//	@Summary		Rename a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Note id"
//	@Param			body	body		RenameNoteRequest	true	"New name"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var req RenameNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.RenameNote(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, h.logger, "rename note failed", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// SaveContent handles PUT /api/notes/{id}/content.
//
//	@Summary		Replace note content with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int					true	"Note id"
//	@Param			If-Match	header		string				false	"ETag of the content being replaced"
//	@Param			body		body		SaveContentRequest	true	"New content"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/content [put]
func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var req SaveContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.SaveContent(r.Context(), id, *req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, h.logger, "save content failed", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// TrashNote handles DELETE /api/notes/{id}.
//
//	@Summary		Move a note and its children to the trash
//	@Tags			notes
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Note trashed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) TrashNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	if err := h.svc.TrashNote(r.Context(), id); err != nil {
		writeError(w, h.logger, "trash note failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreNote handles POST /api/notes/{id}/restore.
//
//	@Summary		Restore a trashed note
//	@Tags			trash
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Note restored"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/restore [post]
func (h *Handler) RestoreNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	if err := h.svc.RestoreNote(r.Context(), id); err != nil {
		writeError(w, h.logger, "restore note failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteLinks handles GET /api/notes/{id}/links.
//
//	@Summary		Links touching a note
//	@Tags			links
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	LinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/links [get]
func (h *Handler) NoteLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	links, err := h.svc.Links(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "list links failed", err)
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{Links: links})
}

// CreateLink handles POST /api/links.
//
//	@Summary		Link two notes
//	@Tags			links
//	@Accept			json
//	@Param			body	body	LinkRequest	true	"Link to create"
//	@Success		204		"Link created"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Link(r.Context(), req.SourceID, req.TargetID, models.LinkType(req.Type)); err != nil {
		writeError(w, h.logger, "create link failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVersions handles GET /api/notes/{id}/versions.
//
//	@Summary		Version history of a note
//	@Tags			history
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	VersionsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	versions, err := h.svc.Versions(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "list versions failed", err)
		return
	}
	writeJSON(w, http.StatusOK, VersionsResponse{Versions: versions})
}

// ContentAt handles GET /api/notes/{id}/versions/{version}/content.
//
//	@Summary		Note content as of a version
//	@Tags			history
//	@Produce		json
//	@Param			id		path		int	true	"Note id"
//	@Param			version	path		int	true	"Version, 0 for the content before the first change"
//	@Success		200		{object}	ContentAtResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/versions/{version}/content [get]
func (h *Handler) ContentAt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid version"))
		return
	}
	content, err := h.svc.ContentAt(r.Context(), id, version)
	if err != nil {
		writeError(w, h.logger, "content at version failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentAtResponse{NoteID: id, Version: version, Content: content})
}

// GetVersion handles GET /api/versions/{diffID}.
//
//	@Summary		One history entry with its change-set
//	@Tags			history
//	@Produce		json
//	@Param			diffID	path		int	true	"History entry id"
//	@Success		200		{object}	noteservice.VersionDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/versions/{diffID} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	diffID, err := int64Param(r, "diffID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	v, err := h.svc.Version(r.Context(), diffID)
	if err != nil {
		writeError(w, h.logger, "get version failed", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListTrash handles GET /api/trash.
//
//	@Summary		Trashed notes, most recently deleted first
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	TrashResponse
//	@Security		BearerAuth
//	@Router			/trash [get]
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Trash(r.Context())
	if err != nil {
		writeError(w, h.logger, "list trash failed", err)
		return
	}
	writeJSON(w, http.StatusOK, TrashResponse{Notes: notes})
}

// EmptyTrash handles DELETE /api/trash.
//
//	@Summary		Permanently delete every trashed note
//	@Tags			trash
//	@Produce		json
//	@Success		200	{object}	EmptyTrashResponse
//	@Security		BearerAuth
//	@Router			/trash [delete]
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, h.logger, "empty trash failed", err)
		return
	}
	writeJSON(w, http.StatusOK, EmptyTrashResponse{Deleted: n})
}

// PurgeNote handles DELETE /api/trash/{id}.
//
//	@Summary		Permanently delete one note
//	@Tags			trash
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/trash/{id} [delete]
func (h *Handler) PurgeNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	if err := h.svc.PurgeNote(r.Context(), id); err != nil {
		writeError(w, h.logger, "purge note failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across live notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// StartImport handles POST /api/import.
//
//	@Summary		Import a folder of Markdown files in the background
//	@Tags			import
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Folder to import"
//	@Success		202		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	if h.imp == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("import is not available"))
		return
	}
	var req ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	progress, err := h.imp.Start(context.WithoutCancel(r.Context()), req.Dir)
	if err != nil {
		writeError(w, h.logger, "start import failed", err)
		return
	}
	go h.relayProgress(progress)
	writeJSON(w, http.StatusAccepted, ImportResponse{Status: "started", Dir: req.Dir})
}

// relayProgress forwards import progress to SSE clients and asks them to
// refetch the tree once the run ends.
func (h *Handler) relayProgress(progress <-chan importer.Progress) {
	for p := range progress {
		if h.events != nil {
			h.events.Publish(sse.Event{Type: sse.ImportProgress, Data: p})
		}
	}
	if h.events != nil {
		h.events.Publish(sse.Event{Type: sse.TreeUpdated, Data: map[string]string{}})
	}
}
