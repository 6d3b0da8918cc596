package badge

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/fsbadge/fsbadge/cache"
	"github.com/fsbadge/fsbadge/logging"
)

// Sized is a cached stat result. OK is false for paths that are missing or
// not regular files, so negative lookups are cached too.
type Sized struct {
	Bytes int64
	OK    bool
}

// Sizer returns file sizes through an LRU cache.
type Sizer struct {
	fs    afero.Fs
	sizes *cache.LRU[Sized]
}

// NewSizer creates a Sizer. sizes may be nil to disable caching.
func NewSizer(fs afero.Fs, sizes *cache.LRU[Sized]) *Sizer {
	return &Sizer{fs: fs, sizes: sizes}
}

// Size returns the size of the regular file at path, or false if it is
// missing, unreadable or not a regular file.
func (s *Sizer) Size(path string) (int64, bool) {
	var tok cache.Token
	if s.sizes != nil {
		if v, ok := s.sizes.Get(path); ok {
			return v.Bytes, v.OK
		}
		tok = s.sizes.Token(path)
	}

	v := s.stat(path)
	if s.sizes != nil {
		s.sizes.SetIfCurrent(path, v, tok)
	}
	return v.Bytes, v.OK
}

func (s *Sizer) stat(path string) Sized {
	info, err := s.fs.Stat(path)
	if err != nil {
		if logging.Enabled(slog.LevelDebug) {
			logging.Sub("sizer").Debug("stat failed", "path", path, "err", err)
		}
		return Sized{}
	}
	if !info.Mode().IsRegular() {
		return Sized{}
	}
	return Sized{Bytes: info.Size(), OK: true}
}
