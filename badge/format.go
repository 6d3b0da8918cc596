package badge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fsbadge/fsbadge/loc"
)

// Info is shown in place of a badge value that does not fit two characters.
const Info = "ⓘ"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib
)

var units = []struct {
	limit float64
	div   float64
	name  string
}{
	{mib, kib, "KB"},
	{gib, mib, "MB"},
	{tib, gib, "GB"},
}

// FormatSize renders bytes with one decimal in binary units, dropping a
// trailing ".0": "512 B", "1.5 KB", "1024 KB", "2.5 MB".
func FormatSize(bytes int64) string {
	b := float64(bytes)
	if b < kib {
		return fmt.Sprintf("%d B", bytes)
	}
	for _, u := range units {
		if b < u.limit {
			return oneDecimal(b/u.div) + " " + u.name
		}
	}
	return oneDecimal(b/tib) + " TB"
}

func oneDecimal(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}

// FormatBadge renders bytes in at most two characters for an explorer
// badge: "9B", "5K", "3M", "1G", "2T". Values that need more room become Info.
func FormatBadge(bytes int64) string {
	if bytes < 10 {
		return fmt.Sprintf("%dB", bytes)
	}
	if bytes < kib {
		return Info
	}
	steps := []struct {
		div    float64
		suffix string
	}{
		{kib, "K"},
		{mib, "M"},
		{gib, "G"},
		{tib, "T"},
	}
	for i, s := range steps {
		n := int64(math.Round(float64(bytes) / s.div))
		if n == 0 && i > 0 {
			return Info
		}
		if n < 10 {
			return fmt.Sprintf("%d%s", n, s.suffix)
		}
		if n < 100 {
			return Info
		}
	}
	return Info
}

// LocOptions controls where line counts are shown.
type LocOptions struct {
	ShowInStatusBar bool
	ShowInTooltips  bool
}

// View is the text and tooltip for a status entry.
type View struct {
	Text    string
	Tooltip string
}

// FormatLoc combines line counts with an already formatted size. Without
// counts, both fields are just the size.
func FormatLoc(counts *loc.Counts, size string, opts LocOptions) View {
	if counts == nil {
		return View{Text: size, Tooltip: size}
	}
	full := fmt.Sprintf("%d lines (%d loc) • %s", counts.Total, counts.LOC, size)
	v := View{Text: size, Tooltip: size}
	if opts.ShowInStatusBar {
		v.Text = full
	}
	if opts.ShowInTooltips {
		v.Tooltip = full
	}
	return v
}
