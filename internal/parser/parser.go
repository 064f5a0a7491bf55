// Package parser reads and writes the Markdown files nisabo imports and
// exports: an optional YAML front-matter block followed by the note body.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Document is a parsed Markdown file.
type Document struct {
	Meta  map[string]any
	Title string
	Body  string
	Links []string
}

// Parse splits data into front matter and body and collects wikilink targets.
// A missing or malformed front-matter block leaves the whole input as body.
func Parse(data []byte) (*Document, error) {
	meta, body := splitFrontmatter(data)

	doc := &Document{
		Meta:  meta,
		Body:  body,
		Links: extractLinks(body),
	}
	if t, ok := meta["title"].(string); ok {
		doc.Title = strings.TrimSpace(t)
	}
	return doc, nil
}

func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var meta map[string]any
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, string(data)
	}
	return meta, body
}

// extractLinks returns deduplicated wikilink targets; [[Target|Alias]] yields Target.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// FrontMatter is the metadata block written at the top of exported notes.
type FrontMatter struct {
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Updated string `yaml:"updated"`
	Deleted string `yaml:"deleted,omitempty"`
	Draft   bool   `yaml:"draft"`
}

// Compose renders fm and body as a Markdown file.
func Compose(fm FrontMatter, body string) ([]byte, error) {
	block, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("parser: marshal front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(block)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
