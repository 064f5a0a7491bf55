// Package models defines the domain types for nisabo.
package models

import (
	"fmt"
	"time"
)

// Note is a single archived document.
type Note struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Content   *string    `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Body returns the note content, or "" when it has never been written.
func (n *Note) Body() string {
	if n.Content == nil {
		return ""
	}
	return *n.Content
}

// Trashed reports whether the note is soft-deleted.
func (n *Note) Trashed() bool {
	return n.DeletedAt != nil
}

// NoteIDName is a lightweight item used by the trash view.
type NoteIDName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NoteNode is a live note placed in the parent/child forest.
type NoteNode struct {
	Note
	HasParent bool        `json:"has_parent"`
	Children  []*NoteNode `json:"children"`
}

// LinkType is the kind of a directed edge between two notes.
type LinkType string

const (
	LinkParent  LinkType = "parent"
	LinkRelated LinkType = "related"
)

// ParseLinkType converts s to a LinkType.
func ParseLinkType(s string) (LinkType, error) {
	switch LinkType(s) {
	case LinkParent, LinkRelated:
		return LinkType(s), nil
	}
	return "", fmt.Errorf("unknown link type %q", s)
}

// NoteLink is a directed edge. For LinkParent, Target is a child of Source.
type NoteLink struct {
	ID        int64     `json:"id"`
	SourceID  int64     `json:"source_id"`
	TargetID  int64     `json:"target_id"`
	Type      LinkType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteDiff is one entry of a note's append-only version log.
type NoteDiff struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Version   int       `json:"version"`
	Payload   string    `json:"diff"`
	ChangedAt time.Time `json:"changed_at"`
}

// VersionInfo is a NoteDiff without its payload, for list views.
type VersionInfo struct {
	ID        int64     `json:"id"`
	Version   int       `json:"version"`
	ChangedAt time.Time `json:"changed_at"`
}
