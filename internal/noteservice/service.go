// Package noteservice coordinates the note store, the version history and
// change notifications for the outer surfaces (HTTP, MCP, CLI).
package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/checksum"
	"github.com/starford/nisabo/internal/history"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/sse"
	"github.com/starford/nisabo/internal/store"
)

// Publisher receives note mutations. *sse.Broker implements it.
type Publisher interface {
	PublishNoteEvent(kind sse.Kind, id int64)
}

type nopPublisher struct{}

func (nopPublisher) PublishNoteEvent(sse.Kind, int64) {}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Checksum string            `json:"checksum"`
	Links    []models.NoteLink `json:"links"`
}

// VersionDetail is one history entry with its decoded change-set.
type VersionDetail struct {
	models.NoteDiff
	Changes history.ChangeSet `json:"changes"`
}

// Service coordinates store, history and event operations.
type Service struct {
	store  store.NoteStore
	events Publisher
	logger *slog.Logger
}

// NewService creates a new note service. events and logger may be nil.
func NewService(st store.NoteStore, events Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, events: events, logger: logger}
}

// Tree returns the live notes as a forest.
func (s *Service) Tree(ctx context.Context) ([]*models.NoteNode, error) {
	return s.store.GetNotes(ctx)
}

// GetNote returns a note with its checksum and links.
func (s *Service) GetNote(ctx context.Context, id int64) (*NoteDetail, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	links, err := s.store.GetNoteLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: *n, Checksum: checksum.OfContent(n.Content), Links: nonNilSlice(links)}, nil
}

// CreateNote creates a note, optionally under parentID and with initial
// content. Initial content is recorded as version 1.
func (s *Service) CreateNote(ctx context.Context, name string, content *string, parentID *int64) (*NoteDetail, error) {
	var (
		id  int64
		err error
	)
	if parentID != nil {
		id, err = s.store.AddChildNote(ctx, *parentID, name, content)
	} else {
		id, err = s.store.InsertNote(ctx, name, content)
	}
	if err != nil {
		return nil, err
	}

	if content != nil && *content != "" {
		if _, err := s.store.RecordChange(ctx, id, "", *content); err != nil {
			s.logger.Error("record initial version failed", slog.Int64("id", id), slog.String("error", err.Error()))
			return nil, err
		}
	}
	s.events.PublishNoteEvent(sse.NoteCreated, id)
	return s.GetNote(ctx, id)
}

// RenameNote changes a note's name.
func (s *Service) RenameNote(ctx context.Context, id int64, name string) (*NoteDetail, error) {
	if err := s.store.UpdateNoteName(ctx, id, name); err != nil {
		return nil, err
	}
	s.events.PublishNoteEvent(sse.NoteRenamed, id)
	return s.GetNote(ctx, id)
}

// SaveContent replaces a note's content and records the change in its
// history. A non-empty ifMatch must match the checksum of the current
// content, otherwise apperr.ErrConflict is returned. Saving identical
// content is a no-op.
func (s *Service) SaveContent(ctx context.Context, id int64, content, ifMatch string) (*NoteDetail, error) {
	before, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(ifMatch, checksum.OfContent(before.Content)) {
		return nil, fmt.Errorf("noteservice: save note %d: %w", id, apperr.ErrConflict)
	}
	if before.Content != nil && *before.Content == content {
		return s.GetNote(ctx, id)
	}

	if err := s.store.UpdateNoteContent(ctx, id, content); err != nil {
		return nil, err
	}
	d, err := s.store.RecordChange(ctx, id, before.Body(), content)
	if err != nil {
		s.logger.Error("record change failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.Debug("note saved", slog.Int64("id", id), slog.Int("version", d.Version))
	s.events.PublishNoteEvent(sse.NoteUpdated, id)
	return s.GetNote(ctx, id)
}

// TrashNote moves a note and its direct children to the trash.
func (s *Service) TrashNote(ctx context.Context, id int64) error {
	if err := s.store.DeleteNoteAndChildrenSoft(ctx, id); err != nil {
		return err
	}
	s.events.PublishNoteEvent(sse.NoteTrashed, id)
	return nil
}

// RestoreNote takes a note out of the trash.
func (s *Service) RestoreNote(ctx context.Context, id int64) error {
	if err := s.store.RestoreNote(ctx, id); err != nil {
		return err
	}
	s.events.PublishNoteEvent(sse.NoteRestored, id)
	return nil
}

// PurgeNote deletes a note permanently.
func (s *Service) PurgeNote(ctx context.Context, id int64) error {
	if err := s.store.DeleteNoteHard(ctx, id); err != nil {
		return err
	}
	s.events.PublishNoteEvent(sse.NoteDeleted, id)
	return nil
}

// Trash lists trashed notes.
func (s *Service) Trash(ctx context.Context) ([]models.NoteIDName, error) {
	notes, err := s.store.GetTrash(ctx)
	return nonNilSlice(notes), err
}

// EmptyTrash purges every trashed note.
func (s *Service) EmptyTrash(ctx context.Context) (int64, error) {
	n, err := s.store.EmptyTrash(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.events.PublishNoteEvent(sse.TrashEmptied, 0)
	}
	return n, nil
}

// Link creates a typed link between two notes.
func (s *Service) Link(ctx context.Context, sourceID, targetID int64, linkType models.LinkType) error {
	if err := s.store.AddNoteLink(ctx, sourceID, targetID, linkType); err != nil {
		return err
	}
	s.events.PublishNoteEvent(sse.NoteLinked, targetID)
	return nil
}

// Links returns the links of a note.
func (s *Service) Links(ctx context.Context, id int64) ([]models.NoteLink, error) {
	links, err := s.store.GetNoteLinks(ctx, id)
	return nonNilSlice(links), err
}

// Search delegates full-text search to the store.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Note, error) {
	notes, err := s.store.Search(ctx, query, limit)
	return nonNilSlice(notes), err
}

// Versions lists a note's history.
func (s *Service) Versions(ctx context.Context, id int64) ([]models.VersionInfo, error) {
	versions, err := s.store.ListVersions(ctx, id)
	return nonNilSlice(versions), err
}

// Version returns one history entry with its decoded changes.
func (s *Service) Version(ctx context.Context, diffID int64) (*VersionDetail, error) {
	d, err := s.store.GetVersion(ctx, diffID)
	if err != nil {
		return nil, err
	}
	cs, err := history.Decode(d.Payload)
	if err != nil {
		return nil, err
	}
	return &VersionDetail{NoteDiff: *d, Changes: cs}, nil
}

// ContentAt returns a note's content as of the given version.
func (s *Service) ContentAt(ctx context.Context, id int64, version int) (string, error) {
	return s.store.ContentAtVersion(ctx, id, version)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
