package cmd

import (
	"fmt"
	"io"
	"strings"
	gosync "sync"
)

// printDisplay writes each visible change of a status entry as one line.
type printDisplay struct {
	mu      gosync.Mutex
	w       io.Writer
	label   string
	last    string
	visible bool
}

func (d *printDisplay) Show(text, _ string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.visible && d.last == text {
		return
	}
	d.visible, d.last = true, text
	fmt.Fprintf(d.w, "%s\t%s\n", d.label, stripIcon(text))
}

func (d *printDisplay) Hide() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible {
		return
	}
	d.visible = false
	fmt.Fprintf(d.w, "%s\t-\n", d.label)
}

func (d *printDisplay) Dispose() {}

// snapshotDisplay keeps the last state of a status entry.
type snapshotDisplay struct {
	mu      gosync.Mutex
	text    string
	tooltip string
	visible bool
}

func (d *snapshotDisplay) Show(text, tooltip string) {
	d.mu.Lock()
	d.text, d.tooltip, d.visible = text, tooltip, true
	d.mu.Unlock()
}

func (d *snapshotDisplay) Hide() {
	d.mu.Lock()
	d.visible = false
	d.mu.Unlock()
}

func (d *snapshotDisplay) Dispose() {}

func (d *snapshotDisplay) snapshot() (text, tooltip string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return stripIcon(d.text), d.tooltip, d.visible
}

// stripIcon drops a leading "$(name) " icon reference.
func stripIcon(text string) string {
	if !strings.HasPrefix(text, "$(") {
		return text
	}
	if i := strings.Index(text, ") "); i >= 0 {
		return text[i+2:]
	}
	return text
}

// syncWriter serialises writes from the notifier goroutine and the caller.
type syncWriter struct {
	mu gosync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
