package loc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/fsbadge/fsbadge/cache"
	"github.com/fsbadge/fsbadge/logging"
)

// MaxScanSize is the largest file, by size hint, that is read from disk.
// Open buffers are counted regardless of size.
const MaxScanSize = 5 * 1024 * 1024

// Counts holds line totals for a file. LOC counts lines with
// non-whitespace content, so LOC <= Total.
type Counts struct {
	Total int `json:"total" yaml:"total"`
	LOC   int `json:"loc" yaml:"loc"`
}

// Result is what the resolver caches for a path read from disk.
type Result struct {
	Counts Counts
	Binary bool
}

// Options tunes a single Resolve call.
type Options struct {
	// SizeHint is the file size in bytes if already known. Zero means unknown.
	SizeHint int64
}

// Resolver computes line counts, preferring open buffers over disk.
type Resolver struct {
	fs      afero.Fs
	buffers Buffers
	results *cache.LRU[Result]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache remembers disk results and binary verdicts per path. The cache
// should come from the session registry so file changes invalidate it.
func WithCache(c *cache.LRU[Result]) Option {
	return func(r *Resolver) { r.results = c }
}

// NewResolver creates a resolver reading from fs. buffers may be nil when
// there is no editor state.
func NewResolver(fs afero.Fs, buffers Buffers, opts ...Option) *Resolver {
	r := &Resolver{fs: fs, buffers: buffers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the line counts for path, or false when there is nothing
// to show: the file is binary, too large, unreadable, or ctx was cancelled.
// Errors are never returned; they all mean "no result".
func (r *Resolver) Resolve(ctx context.Context, path string, opts Options) (Counts, bool) {
	l := logging.Sub("loc")

	if doc, ok := findBuffer(r.buffers, path); ok {
		return CountDocument(doc), true
	}

	if opts.SizeHint > MaxScanSize {
		l.Debug("skip oversized file", "path", path, "size", opts.SizeHint)
		return Counts{}, false
	}

	if ctx.Err() != nil {
		return Counts{}, false
	}

	var tok cache.Token
	if r.results != nil {
		if res, ok := r.results.Get(path); ok {
			if res.Binary {
				return Counts{}, false
			}
			return res.Counts, true
		}
		tok = r.results.Token(path)
	}

	counts, binary, err := r.readCounts(ctx, path)
	if err != nil {
		if ctx.Err() == nil && logging.Enabled(slog.LevelDebug) {
			l.Debug("line count unavailable", "path", path, "err", err)
		}
		return Counts{}, false
	}
	if r.results != nil {
		r.results.SetIfCurrent(path, Result{Counts: counts, Binary: binary}, tok)
	}
	if binary {
		return Counts{}, false
	}
	return counts, true
}

// readCounts sniffs then reads the file, checking ctx between the two.
func (r *Resolver) readCounts(ctx context.Context, path string) (Counts, bool, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return Counts{}, false, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err != nil {
		return Counts{}, false, fmt.Errorf("stat: %w", err)
	} else if info.IsDir() {
		return Counts{}, false, fmt.Errorf("%s is a directory", path)
	}

	binary, head, err := IsBinary(f)
	if err != nil {
		return Counts{}, false, fmt.Errorf("sniff: %w", err)
	}
	if binary {
		return Counts{}, true, nil
	}

	if err := ctx.Err(); err != nil {
		return Counts{}, false, err
	}

	rest, err := io.ReadAll(f)
	if err != nil {
		return Counts{}, false, fmt.Errorf("read: %w", err)
	}
	return Count(string(bytes.Join([][]byte{head, rest}, nil))), false, nil
}

// Count splits text on "\n" or "\r\n" and counts total and non-blank lines.
// Empty text is one empty line.
func Count(text string) Counts {
	lines := strings.Split(text, "\n")
	return Counts{
		Total: len(lines),
		LOC:   lo.CountBy(lines, isCode),
	}
}

// CountDocument counts lines straight from an open buffer.
func CountDocument(doc Document) Counts {
	n := doc.LineCount()
	return Counts{
		Total: n,
		LOC: lo.CountBy(lo.Range(n), func(i int) bool {
			return isCode(doc.LineAt(i))
		}),
	}
}

func isCode(line string) bool {
	return strings.TrimSpace(line) != ""
}
