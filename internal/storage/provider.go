// Package storage gives import, export and the inbox watcher safe access to
// the Markdown files of one folder.
package storage

import "time"

// Entry describes one Markdown file in a folder.
type Entry struct {
	Path     string    // relative to the provider root
	Stem     string    // file name without the .md extension
	Checksum string    // hex SHA-256 of the contents
	ModTime  time.Time // last modification time
}

// Provider is the interface for folder file operations. All paths are
// relative to the provider root.
type Provider interface {
	// List returns the .md files directly inside dir, sorted by path.
	List(dir string) ([]Entry, error)
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	Move(oldPath, newPath string) error
}
