package loc

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Document is an open, editable buffer. Its lines may differ from what is
// on disk.
type Document interface {
	Path() string
	LineCount() int
	LineAt(i int) string
}

// Buffers gives the resolver a view of the host's open buffers.
type Buffers interface {
	// Active returns the buffer in the focused editor, if any.
	Active() (Document, bool)
	// Documents returns every open buffer.
	Documents() []Document
}

// TextDocument is an immutable Document built from a string.
type TextDocument struct {
	path  string
	lines []string
}

// NewTextDocument splits content into lines the way an editor does:
// "\n" and "\r\n" both end a line, and a trailing newline leaves an empty
// last line.
func NewTextDocument(path, content string) *TextDocument {
	return &TextDocument{path: path, lines: splitLines(content)}
}

func (d *TextDocument) Path() string   { return d.path }
func (d *TextDocument) LineCount() int { return len(d.lines) }

func (d *TextDocument) LineAt(i int) string {
	return d.lines[i]
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// findBuffer looks at the active buffer first, then every open buffer.
func findBuffer(b Buffers, path string) (Document, bool) {
	if b == nil {
		return nil, false
	}
	if doc, ok := b.Active(); ok && doc != nil && samePath(doc.Path(), path) {
		return doc, true
	}
	return lo.Find(b.Documents(), func(doc Document) bool {
		return doc != nil && samePath(doc.Path(), path)
	})
}
