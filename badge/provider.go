package badge

import "context"

// Decoration is the explorer annotation for one file.
type Decoration struct {
	Badge   string `json:"badge" yaml:"badge"`
	Tooltip string `json:"tooltip" yaml:"tooltip"`
}

// Provider answers decoration queries for the file explorer.
type Provider struct {
	exclude Excluder
	sizer   *Sizer
}

// NewProvider creates a Provider.
func NewProvider(exclude Excluder, sizer *Sizer) *Provider {
	return &Provider{exclude: exclude, sizer: sizer}
}

// Decorate returns the badge and tooltip for path. There is none for
// excluded paths, directories, missing files, or once ctx is cancelled.
func (p *Provider) Decorate(ctx context.Context, path string) (Decoration, bool) {
	if ctx.Err() != nil {
		return Decoration{}, false
	}
	if p.exclude != nil && p.exclude.Excluded(path) {
		return Decoration{}, false
	}
	size, ok := p.sizer.Size(path)
	if !ok {
		return Decoration{}, false
	}
	return Decoration{
		Badge:   FormatBadge(size),
		Tooltip: FormatSize(size),
	}, true
}
