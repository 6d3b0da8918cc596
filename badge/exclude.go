package badge

import (
	"strings"

	"github.com/samber/lo"
)

// Excluder decides whether a path gets no annotation at all.
type Excluder interface {
	Excluded(path string) bool
}

// ExcludedDirs excludes any path that passes through, or ends in, a
// directory with one of the listed names. Matching is by whole segment:
// "node_modules" does not exclude "node_modules_backup".
type ExcludedDirs []string

// Excluded reports whether path lies in an excluded directory. Backslashes
// are treated as separators.
func (d ExcludedDirs) Excluded(path string) bool {
	normalized := strings.ReplaceAll(path, `\`, "/")
	return lo.SomeBy(d, func(dir string) bool {
		if dir == "" {
			return false
		}
		return strings.Contains(normalized, "/"+dir+"/") || strings.HasSuffix(normalized, "/"+dir)
	})
}
