package badge

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jellydator/ttlcache/v3"
	"github.com/spf13/afero"

	"github.com/fsbadge/fsbadge/logging"
)

// DefaultProjectTTL bounds how long a project total is reused.
const DefaultProjectTTL = 30 * time.Second

// ProjectSizer totals the sizes of all regular files under a root,
// skipping excluded directories. Totals are memoised per root.
type ProjectSizer struct {
	fs      afero.Fs
	exclude Excluder
	totals  *ttlcache.Cache[string, int64]
}

// NewProjectSizer creates a ProjectSizer whose totals expire after ttl.
func NewProjectSizer(fs afero.Fs, exclude Excluder, ttl time.Duration) *ProjectSizer {
	if ttl <= 0 {
		ttl = DefaultProjectTTL
	}
	return &ProjectSizer{
		fs:      fs,
		exclude: exclude,
		totals: ttlcache.New[string, int64](
			ttlcache.WithTTL[string, int64](ttl),
			ttlcache.WithDisableTouchOnHit[string, int64](),
		),
	}
}

// Size returns the total bytes under root.
func (p *ProjectSizer) Size(root string) int64 {
	if item := p.totals.Get(root); item != nil {
		return item.Value()
	}
	total := p.walk(root)
	p.totals.Set(root, total, ttlcache.DefaultTTL)
	return total
}

// Invalidate forgets every memoised total.
func (p *ProjectSizer) Invalidate() {
	p.totals.DeleteAll()
}

func (p *ProjectSizer) walk(root string) int64 {
	l := logging.Sub("project")
	var total int64
	var files int

	err := afero.Walk(p.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, as are permission errors.
			return nil
		}
		if path != root && p.exclude != nil && p.exclude.Excluded(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
			files++
		}
		return nil
	})
	if err != nil {
		l.Warn("project walk failed", "root", root, "err", err)
	}

	l.Debug("project size", "root", root, "files", files, "size", humanize.IBytes(uint64(total)))
	return total
}

// ProjectStatus shows the workspace total in its own status entry.
type ProjectStatus struct {
	root    func() string
	enabled func() bool
	sizer   *ProjectSizer
	display Display
}

// NewProjectStatus creates the project size entry.
func NewProjectStatus(root func() string, enabled func() bool, sizer *ProjectSizer, display Display) *ProjectStatus {
	return &ProjectStatus{root: root, enabled: enabled, sizer: sizer, display: display}
}

// Update recomputes the entry. It is hidden when disabled or when there is
// no workspace root.
func (s *ProjectStatus) Update() {
	root := s.root()
	if root == "" || !s.enabled() {
		s.display.Hide()
		return
	}
	size := s.sizer.Size(root)
	s.display.Show("$(database) "+FormatSize(size), "Project size: "+humanize.Comma(size)+" bytes")
}

// Invalidate drops the memoised total and updates the entry.
func (s *ProjectStatus) Invalidate() {
	s.sizer.Invalidate()
	s.Update()
}

// Dispose releases the entry.
func (s *ProjectStatus) Dispose() {
	s.display.Dispose()
}
