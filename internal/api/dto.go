package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Name     string  `json:"name" example:"Trip plan"`
	Content  *string `json:"content,omitempty" example:"# Day 1"`
	ParentID *int64  `json:"parent_id,omitempty" example:"1"`
}

// Validate validates the request.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.ParentID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

// RenameNoteRequest is the request body for renaming a note.
type RenameNoteRequest struct {
	Name string `json:"name" example:"Trip plan (final)"`
}

// Validate validates the request.
func (r *RenameNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	)
}

// SaveContentRequest is the request body for replacing note content.
type SaveContentRequest struct {
	Content *string `json:"content" example:"# Day 1\nMuseum"`
}

// Validate validates the request.
func (r *SaveContentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// LinkRequest is the request body for linking two notes.
type LinkRequest struct {
	SourceID int64  `json:"source_id" example:"1"`
	TargetID int64  `json:"target_id" example:"2"`
	Type     string `json:"type" example:"related"`
}

// Validate validates the request.
func (r *LinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SourceID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.TargetID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Type, validation.Required, validation.In(string(models.LinkParent), string(models.LinkRelated))),
	)
}

// ImportRequest is the request body for starting an import.
type ImportRequest struct {
	Dir string `json:"dir" example:"/home/me/notes"`
}

// Validate validates the request.
func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Dir, validation.Required),
	)
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// TreeResponse wraps the note forest.
type TreeResponse struct {
	Notes []*models.NoteNode `json:"notes"`
}

// TrashResponse wraps the trash listing.
type TrashResponse struct {
	Notes []models.NoteIDName `json:"notes"`
}

// LinksResponse wraps a note's links.
type LinksResponse struct {
	Links []models.NoteLink `json:"links"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Note `json:"results"`
}

// VersionsResponse wraps a note's version list.
type VersionsResponse struct {
	Versions []models.VersionInfo `json:"versions"`
}

// ContentAtResponse is a note's content as of one version.
type ContentAtResponse struct {
	NoteID  int64  `json:"note_id"`
	Version int    `json:"version"`
	Content string `json:"content"`
}

// EmptyTrashResponse reports how many notes were purged.
type EmptyTrashResponse struct {
	Deleted int64 `json:"deleted"`
}

// ImportResponse is returned when a background import has started.
type ImportResponse struct {
	Status string `json:"status" example:"started"`
	Dir    string `json:"dir"`
}
