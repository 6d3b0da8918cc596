package session

import (
	"context"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/fsbadge/fsbadge/badge"
	"github.com/fsbadge/fsbadge/cache"
	"github.com/fsbadge/fsbadge/loc"
	"github.com/fsbadge/fsbadge/logging"
	"github.com/fsbadge/fsbadge/notify"
	"github.com/fsbadge/fsbadge/settings"
	"github.com/fsbadge/fsbadge/watch"
)

// Rename is one file move reported by the host.
type Rename struct {
	Old string
	New string
}

// Options wires a Session to its host.
type Options struct {
	Fs             afero.Fs
	Workspace      *Workspace
	Settings       settings.Settings
	StatusDisplay  badge.DisplayFactory
	ProjectDisplay badge.Display
}

// Session owns every component for one workspace: the cache registry, the
// debounced notifier, the resolver and the two status entries. Host events
// come in through its handler methods.
type Session struct {
	fs        afero.Fs
	workspace *Workspace
	current   atomic.Pointer[settings.Settings]

	registry *cache.Registry
	sizes    *cache.LRU[badge.Sized]
	lines    *cache.LRU[loc.Result]
	notifier *notify.Notifier

	resolver *loc.Resolver
	provider *badge.Provider
	status   *badge.Status
	project  *badge.ProjectStatus
	projects *badge.ProjectSizer
}

// New creates a session. Call Close when done.
func New(opts Options) *Session {
	s := &Session{
		fs:        opts.Fs,
		workspace: opts.Workspace,
		registry:  cache.NewRegistry(),
	}
	cfg := opts.Settings
	s.current.Store(&cfg)

	s.sizes = cache.New[badge.Sized](s.registry, cfg.CacheSize)
	s.lines = cache.New[loc.Result](s.registry, cfg.CacheSize)
	s.notifier = notify.New(notify.WithDelay(cfg.Debounce))

	sizer := badge.NewSizer(s.fs, s.sizes)
	s.resolver = loc.NewResolver(s.fs, s.workspace, loc.WithCache(s.lines))
	s.provider = badge.NewProvider(s, sizer)
	s.status = badge.NewStatus(s.workspace, s, sizer, s.resolver,
		func() badge.StatusOptions { return s.Settings().StatusOptions() },
		opts.StatusDisplay)
	s.projects = badge.NewProjectSizer(s.fs, s, cfg.Project.TTL)
	s.project = badge.NewProjectStatus(s.workspace.Root,
		func() bool { return s.Settings().Project.Enabled },
		s.projects, opts.ProjectDisplay)

	s.notifier.Subscribe(s.refreshStatus)
	return s
}

// Settings returns the current configuration snapshot.
func (s *Session) Settings() settings.Settings {
	return *s.current.Load()
}

// Excluded reports whether path is in an excluded directory under the
// current settings.
func (s *Session) Excluded(path string) bool {
	return badge.ExcludedDirs(s.Settings().ExcludedDirectories).Excluded(path)
}

// Registry exposes the cache registry.
func (s *Session) Registry() *cache.Registry {
	return s.registry
}

// OnDidChangeDecorations subscribes to the debounced "decorations changed"
// event.
func (s *Session) OnDidChangeDecorations(fn notify.Listener) (dispose func()) {
	return s.notifier.Subscribe(fn)
}

// Decorate answers a decoration query.
func (s *Session) Decorate(ctx context.Context, path string) (badge.Decoration, bool) {
	return s.provider.Decorate(ctx, path)
}

// LineCounts resolves line counts for path.
func (s *Session) LineCounts(ctx context.Context, path string, sizeHint int64) (loc.Counts, bool) {
	return s.resolver.Resolve(ctx, path, loc.Options{SizeHint: sizeHint})
}

// UpdateStatus recomputes both status entries.
func (s *Session) UpdateStatus(ctx context.Context) {
	s.status.Update(ctx)
	s.project.Update()
}

// Run starts the filesystem watcher on the workspace root and blocks until
// ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	l := logging.Sub("session")
	root := s.workspace.Root()
	l.Info("session starting", "root", root, "caches", s.registry.Len())

	s.UpdateStatus(ctx)

	w, err := watch.New(root, s, s)
	if err != nil {
		l.Error("watcher creation failed", "err", err)
		return err
	}
	defer w.Close()

	err = w.Start(ctx)
	if ctx.Err() != nil {
		l.Info("session stopped")
		return nil
	}
	if err != nil {
		l.Error("watcher stopped", "err", err)
	}
	return err
}

// Close stops the notifier and releases the status entries.
func (s *Session) Close() {
	s.notifier.Close()
	s.status.Dispose()
	s.project.Dispose()
}

// refreshStatus runs on every fired batch.
func (s *Session) refreshStatus(ev notify.Event) {
	active, ok := s.workspace.ActivePath()
	if ev.All || (ok && lo.Contains(ev.Paths, active)) {
		s.status.Update(context.Background())
	}
	s.project.Update()
}

func (s *Session) invalidate(paths ...string) {
	for _, p := range paths {
		s.registry.InvalidateAll(p)
	}
	s.projects.Invalidate()
}

// FileCreated handles a watcher create event.
func (s *Session) FileCreated(path string) { s.fileEvent("created", path) }

// FileChanged handles a watcher write event.
func (s *Session) FileChanged(path string) { s.fileEvent("changed", path) }

// FileDeleted handles a watcher delete event.
func (s *Session) FileDeleted(path string) { s.fileEvent("deleted", path) }

func (s *Session) fileEvent(kind, path string) {
	if s.Excluded(path) {
		return
	}
	logging.Sub("session").Debug("file "+kind, "path", path)
	s.invalidate(path)
	s.notifier.Update(path)
}

// FilesCreated handles files created through the editor.
func (s *Session) FilesCreated(paths []string) {
	s.invalidate(paths...)
	s.notifier.Update(paths...)
}

// FilesDeleted handles files deleted through the editor.
func (s *Session) FilesDeleted(paths []string) {
	s.invalidate(paths...)
	s.notifier.Update(paths...)
}

// FilesRenamed handles moves: all old paths, then all new paths.
func (s *Session) FilesRenamed(renames []Rename) {
	olds := lo.Map(renames, func(r Rename, _ int) string { return r.Old })
	news := lo.Map(renames, func(r Rename, _ int) string { return r.New })
	paths := append(olds, news...)
	s.invalidate(paths...)
	s.notifier.Update(paths...)
}

// DocumentSaved handles a buffer being written to disk.
func (s *Session) DocumentSaved(path string) {
	s.invalidate(path)
	s.notifier.Update(path)
	s.status.Update(context.Background())
}

// DocumentOpened handles a buffer being opened.
func (s *Session) DocumentOpened(path string) {
	s.notifier.Update(path)
}

// ActiveChanged handles focus moving to another editor or tab.
func (s *Session) ActiveChanged() {
	s.status.Update(context.Background())
}

// WorkspaceChanged handles the workspace root changing.
func (s *Session) WorkspaceChanged() {
	s.projects.Invalidate()
	s.notifier.Refresh()
}

// ConfigChanged applies a new configuration snapshot.
func (s *Session) ConfigChanged(next settings.Settings, changed settings.Changed) {
	s.current.Store(&next)
	ctx := context.Background()

	if changed.Badge {
		s.registry.ClearAll()
		s.projects.Invalidate()
		s.notifier.Refresh()
	}
	switch {
	case changed.StatusBar:
		s.status.Recreate(ctx)
	case changed.Loc:
		s.status.Update(ctx)
	}
	if changed.Project {
		s.project.Update()
	}
}
