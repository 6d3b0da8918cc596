package badge

import (
	"context"
	gosync "sync"

	"github.com/fsbadge/fsbadge/loc"
	"github.com/fsbadge/fsbadge/logging"
)

// Alignment is the side of the status bar an entry sits on.
type Alignment string

const (
	AlignLeft  Alignment = "Left"
	AlignRight Alignment = "Right"
)

// ParseAlignment maps a config value to an Alignment, defaulting to Left.
func ParseAlignment(s string) Alignment {
	if Alignment(s) == AlignRight {
		return AlignRight
	}
	return AlignLeft
}

// Display is a single status bar entry owned by the host.
type Display interface {
	Show(text, tooltip string)
	Hide()
	Dispose()
}

// DisplayFactory creates a status entry. Alignment and priority are fixed
// for the entry's lifetime, so changing them means a new entry.
type DisplayFactory func(align Alignment, priority int) Display

// ActiveSource reports the path of the file in focus, if it is a file.
type ActiveSource interface {
	ActivePath() (string, bool)
}

// StatusOptions is the part of the configuration the status entry reads.
type StatusOptions struct {
	Loc       LocOptions
	Alignment Alignment
	Priority  int
}

// Status keeps the file status entry in sync with the focused file.
type Status struct {
	mu      gosync.Mutex
	active  ActiveSource
	exclude Excluder
	sizer   *Sizer
	lines   *loc.Resolver
	options func() StatusOptions
	factory DisplayFactory
	display Display
}

// NewStatus creates the status entry through factory.
func NewStatus(active ActiveSource, exclude Excluder, sizer *Sizer, lines *loc.Resolver,
	options func() StatusOptions, factory DisplayFactory) *Status {
	opts := options()
	return &Status{
		active:  active,
		exclude: exclude,
		sizer:   sizer,
		lines:   lines,
		options: options,
		factory: factory,
		display: factory(opts.Alignment, opts.Priority),
	}
}

// Update recomputes the entry for the focused file, hiding it when there
// is nothing to show.
func (s *Status) Update(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(ctx)
}

func (s *Status) updateLocked(ctx context.Context) {
	path, ok := s.active.ActivePath()
	if !ok || (s.exclude != nil && s.exclude.Excluded(path)) {
		s.display.Hide()
		return
	}

	size, ok := s.sizer.Size(path)
	if !ok {
		s.display.Hide()
		return
	}

	var counts *loc.Counts
	if c, ok := s.lines.Resolve(ctx, path, loc.Options{SizeHint: size}); ok {
		counts = &c
	}
	view := FormatLoc(counts, FormatSize(size), s.options().Loc)
	s.display.Show("$(file) "+view.Text, view.Tooltip)
	logging.Sub("status").Debug("status updated", "path", path, "text", view.Text)
}

// Recreate disposes the current entry, creates a new one with the current
// alignment and priority, then updates it.
func (s *Status) Recreate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.display.Dispose()
	opts := s.options()
	s.display = s.factory(opts.Alignment, opts.Priority)
	s.updateLocked(ctx)
}

// Dispose releases the entry.
func (s *Status) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display.Dispose()
}
