// Package history computes, encodes and replays line-based change-sets
// between successive versions of a note's content.
package history

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/starford/nisabo/internal/apperr"
)

// Op is the kind of a single line change.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// Change is one inserted or deleted line.
//
// Index is a cursor that starts at 0 and moves past equal and inserted
// lines but not past deleted ones, so a change-set can be undone by
// walking it backwards over the newer text.
type Change struct {
	Op    Op     `json:"op"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ChangeSet is the ordered list of changes that turns one text into another.
type ChangeSet []Change

// Compute returns the change-set that turns before into after.
func Compute(before, after string) ChangeSet {
	a, b := splitLines(before), splitLines(after)

	cs := ChangeSet{}
	cursor := 0
	for _, oc := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch oc.Tag {
		case 'e':
			cursor += oc.I2 - oc.I1
		case 'd':
			cs = appendDeletes(cs, a[oc.I1:oc.I2], cursor)
		case 'i':
			cs, cursor = appendInserts(cs, b[oc.J1:oc.J2], cursor)
		case 'r':
			cs = appendDeletes(cs, a[oc.I1:oc.I2], cursor)
			cs, cursor = appendInserts(cs, b[oc.J1:oc.J2], cursor)
		}
	}
	return cs
}

func appendDeletes(cs ChangeSet, lines []string, at int) ChangeSet {
	for _, l := range lines {
		cs = append(cs, Change{Op: OpDelete, Index: at, Text: l})
	}
	return cs
}

func appendInserts(cs ChangeSet, lines []string, at int) (ChangeSet, int) {
	for _, l := range lines {
		cs = append(cs, Change{Op: OpInsert, Index: at, Text: l})
		at++
	}
	return cs, at
}

// Revert undoes cs on current, returning the text cs was computed from.
// Changes whose index falls outside current are skipped.
func Revert(current string, cs ChangeSet) string {
	lines := splitLines(current)
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		switch c.Op {
		case OpInsert:
			if c.Index < len(lines) {
				lines = append(lines[:c.Index], lines[c.Index+1:]...)
			}
		case OpDelete:
			if c.Index <= len(lines) {
				lines = append(lines[:c.Index], append([]string{c.Text}, lines[c.Index:]...)...)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Encode serializes cs to its persisted JSON form.
func Encode(cs ChangeSet) (string, error) {
	if cs == nil {
		cs = ChangeSet{}
	}
	data, err := json.Marshal(cs)
	if err != nil {
		return "", fmt.Errorf("history: encode: %w: %w", apperr.ErrSerialization, err)
	}
	return string(data), nil
}

// Decode parses a payload produced by Encode.
func Decode(payload string) (ChangeSet, error) {
	var cs ChangeSet
	if err := json.Unmarshal([]byte(payload), &cs); err != nil {
		return nil, fmt.Errorf("history: decode: %w: %w", apperr.ErrSerialization, err)
	}
	for i, c := range cs {
		if c.Op != OpInsert && c.Op != OpDelete {
			return nil, fmt.Errorf("history: decode: %w: change %d has op %q", apperr.ErrSerialization, i, c.Op)
		}
		if c.Index < 0 {
			return nil, fmt.Errorf("history: decode: %w: change %d has negative index", apperr.ErrSerialization, i)
		}
	}
	return cs, nil
}

// splitLines splits on "\n" keeping a trailing empty line, so that
// strings.Join(splitLines(s), "\n") == s. The empty string has no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
