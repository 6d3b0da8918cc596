package session

import (
	"path/filepath"
	gosync "sync"

	"github.com/fsbadge/fsbadge/loc"
)

// Tab is the focused editor tab when no text editor has focus. Diff tabs
// set Modified, which wins over Path.
type Tab struct {
	Path     string
	Modified string
}

// Workspace is the host's editor state: the workspace root, open buffers
// and what has focus. It implements loc.Buffers and badge.ActiveSource.
type Workspace struct {
	mu     gosync.RWMutex
	root   string
	docs   []loc.Document
	active string
	tab    *Tab
}

// NewWorkspace creates a workspace rooted at root. root may be empty.
func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// Root returns the workspace root.
func (w *Workspace) Root() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root
}

// SetRoot replaces the workspace root.
func (w *Workspace) SetRoot(root string) {
	w.mu.Lock()
	w.root = root
	w.mu.Unlock()
}

// Open adds or replaces a buffer with the given content.
func (w *Workspace) Open(path, content string) {
	doc := loc.NewTextDocument(filepath.Clean(path), content)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, d := range w.docs {
		if d.Path() == doc.Path() {
			w.docs[i] = doc
			return
		}
	}
	w.docs = append(w.docs, doc)
}

// Close removes a buffer. Focus on it is dropped too.
func (w *Workspace) Close(path string) {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, d := range w.docs {
		if d.Path() == path {
			w.docs = append(w.docs[:i:i], w.docs[i+1:]...)
			break
		}
	}
	if w.active == path {
		w.active = ""
	}
}

// Focus makes path the active editor. An empty path clears it.
func (w *Workspace) Focus(path string) {
	if path != "" {
		path = filepath.Clean(path)
	}
	w.mu.Lock()
	w.active = path
	w.mu.Unlock()
}

// FocusTab sets the active tab used when no editor has focus.
func (w *Workspace) FocusTab(tab *Tab) {
	w.mu.Lock()
	w.tab = tab
	w.mu.Unlock()
}

// Active returns the open buffer behind the active editor.
func (w *Workspace) Active() (loc.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == "" {
		return nil, false
	}
	for _, d := range w.docs {
		if d.Path() == w.active {
			return d, true
		}
	}
	return nil, false
}

// Documents returns all open buffers.
func (w *Workspace) Documents() []loc.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]loc.Document, len(w.docs))
	copy(out, w.docs)
	return out
}

// ActivePath returns the focused file: the active editor, else the active
// tab.
func (w *Workspace) ActivePath() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active != "" {
		return w.active, true
	}
	if w.tab == nil {
		return "", false
	}
	if w.tab.Modified != "" {
		return w.tab.Modified, true
	}
	return w.tab.Path, w.tab.Path != ""
}
