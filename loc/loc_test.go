package loc

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsbadge/fsbadge/cache"
)

// countingFs records opens and bytes read, and can run hooks on every
// read and close.
type countingFs struct {
	afero.Fs
	opens   atomic.Int32
	read    atomic.Int64
	onRead  func()
	onClose func()
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens.Add(1)
	f, err := c.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, fs: c}, nil
}

type countingFile struct {
	afero.File
	fs *countingFs
}

func (f *countingFile) Read(p []byte) (int, error) {
	if f.fs.onRead != nil {
		f.fs.onRead()
	}
	n, err := f.File.Read(p)
	f.fs.read.Add(int64(n))
	return n, err
}

func (f *countingFile) Close() error {
	err := f.File.Close()
	if f.fs.onClose != nil {
		f.fs.onClose()
	}
	return err
}

type fakeBuffers struct {
	active Document
	docs   []Document
}

func (b *fakeBuffers) Active() (Document, bool) { return b.active, b.active != nil }
func (b *fakeBuffers) Documents() []Document    { return b.docs }

func newFs(t *testing.T, files map[string]string) *countingFs {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0644))
	}
	return &countingFs{Fs: mem}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Counts
	}{
		{"plain", "line 1\nline 2\nline 3", Counts{Total: 3, LOC: 3}},
		{"blank lines excluded", "line 1\n\nline 2\n  \nline3", Counts{Total: 5, LOC: 3}},
		{"only blank lines", "\n\n  \n\t\n", Counts{Total: 5, LOC: 0}},
		{"empty", "", Counts{Total: 1, LOC: 0}},
		{"crlf", "a\r\nb", Counts{Total: 2, LOC: 2}},
		{"mixed endings", "line 1\nline 2\r\nline 3\n", Counts{Total: 4, LOC: 3}},
		{"trailing newline", "line 1\nline 2\nline 3\n", Counts{Total: 4, LOC: 3}},
		{"whitespace crlf", "  \r\n\t\r\n", Counts{Total: 3, LOC: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.content))
		})
	}
}

func TestTextDocument_MatchesCount(t *testing.T) {
	content := "package main\r\n\r\nfunc main() {}\n"
	doc := NewTextDocument("/src/main.go", content)

	assert.Equal(t, 4, doc.LineCount())
	assert.Equal(t, "package main", doc.LineAt(0))
	assert.Equal(t, Count(content), CountDocument(doc))
}

func TestResolve_ReadsFromDisk(t *testing.T) {
	fs := newFs(t, map[string]string{"/p/file.txt": "line 1\n\nline 2\n  \nline3"})
	r := NewResolver(fs, nil)

	got, ok := r.Resolve(context.Background(), "/p/file.txt", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 5, LOC: 3}, got)
}

func TestResolve_PrefersActiveBuffer(t *testing.T) {
	fs := newFs(t, map[string]string{"/p/a.go": "on disk\n"})
	buffers := &fakeBuffers{active: NewTextDocument("/p/a.go", "edited\n\nin memory\nmore")}
	r := NewResolver(fs, buffers)

	got, ok := r.Resolve(context.Background(), "/p/a.go", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 4, LOC: 3}, got)
	assert.Zero(t, fs.opens.Load(), "open buffer must not touch disk")
}

func TestResolve_ScansOpenBuffers(t *testing.T) {
	fs := newFs(t, nil)
	buffers := &fakeBuffers{
		active: NewTextDocument("/p/other.go", "x"),
		docs: []Document{
			NewTextDocument("/p/other.go", "x"),
			NewTextDocument("/p/unsaved.go", "a\n\nb"),
		},
	}
	r := NewResolver(fs, buffers)

	got, ok := r.Resolve(context.Background(), "/p/./unsaved.go", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 3, LOC: 2}, got)
	assert.Zero(t, fs.opens.Load())
}

func TestResolve_BufferIgnoresSizeCeilingAndCancellation(t *testing.T) {
	buffers := &fakeBuffers{active: NewTextDocument("/big.txt", "a\nb")}
	r := NewResolver(newFs(t, nil), buffers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, ok := r.Resolve(ctx, "/big.txt", Options{SizeHint: 10 * MaxScanSize})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 2, LOC: 2}, got)
}

func TestResolve_OversizedHint(t *testing.T) {
	fs := newFs(t, map[string]string{"/huge.log": "small really"})
	r := NewResolver(fs, nil)

	_, ok := r.Resolve(context.Background(), "/huge.log", Options{SizeHint: MaxScanSize + 1})
	assert.False(t, ok)
	assert.Zero(t, fs.opens.Load())

	_, ok = r.Resolve(context.Background(), "/huge.log", Options{SizeHint: MaxScanSize})
	assert.True(t, ok, "exactly at the ceiling is still scanned")
}

func TestResolve_AlreadyCancelled(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.txt": "a"})
	r := NewResolver(fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := r.Resolve(ctx, "/a.txt", Options{})
	assert.False(t, ok)
	assert.Zero(t, fs.opens.Load())
}

func TestResolve_CancelledDuringSniff(t *testing.T) {
	content := strings.Repeat("some text line\n", 2000) // > sniffLen
	fs := newFs(t, map[string]string{"/long.txt": content})
	ctx, cancel := context.WithCancel(context.Background())
	fs.onRead = cancel
	r := NewResolver(fs, nil)

	_, ok := r.Resolve(ctx, "/long.txt", Options{})
	assert.False(t, ok)
	assert.LessOrEqual(t, fs.read.Load(), int64(sniffLen), "full read must not start after cancellation")
}

func TestResolve_Binary(t *testing.T) {
	payload := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR" + strings.Repeat("\x00", 20000)
	fs := newFs(t, map[string]string{"/img.png": payload})
	r := NewResolver(fs, nil)

	_, ok := r.Resolve(context.Background(), "/img.png", Options{})
	assert.False(t, ok)
	assert.LessOrEqual(t, fs.read.Load(), int64(sniffLen))
}

func TestResolve_MissingFileAndDirectory(t *testing.T) {
	fs := newFs(t, nil)
	require.NoError(t, fs.MkdirAll("/p/dir", 0755))
	r := NewResolver(fs, nil)

	_, ok := r.Resolve(context.Background(), "/p/nope.txt", Options{})
	assert.False(t, ok)

	_, ok = r.Resolve(context.Background(), "/p/dir", Options{})
	assert.False(t, ok)
}

func TestResolve_EmptyFile(t *testing.T) {
	fs := newFs(t, map[string]string{"/empty": ""})
	r := NewResolver(fs, nil)

	got, ok := r.Resolve(context.Background(), "/empty", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 1, LOC: 0}, got)
}

func TestResolve_LargeTextCrossesSniffBoundary(t *testing.T) {
	content := strings.Repeat("x\n", 6000) // 12000 bytes
	fs := newFs(t, map[string]string{"/big.txt": content})
	r := NewResolver(fs, nil)

	got, ok := r.Resolve(context.Background(), "/big.txt", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 6001, LOC: 6000}, got)
}

func TestResolve_CacheServesRepeatLookups(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.txt": "a\nb", "/b.bin": "\x00\x01\x02"})
	reg := cache.NewRegistry()
	results := cache.New[Result](reg, 8)
	r := NewResolver(fs, nil, WithCache(results))
	ctx := context.Background()

	first, ok := r.Resolve(ctx, "/a.txt", Options{})
	require.True(t, ok)
	_, ok = r.Resolve(ctx, "/b.bin", Options{})
	require.False(t, ok)
	opens := fs.opens.Load()

	second, ok := r.Resolve(ctx, "/a.txt", Options{})
	require.True(t, ok)
	assert.Equal(t, first, second)
	_, ok = r.Resolve(ctx, "/b.bin", Options{})
	assert.False(t, ok)
	assert.Equal(t, opens, fs.opens.Load(), "cached results must not reopen files")

	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("a\nb\nc"), 0644))
	reg.InvalidateAll("/a.txt")

	third, ok := r.Resolve(ctx, "/a.txt", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 3, LOC: 3}, third)
}

func TestResolve_InvalidationDuringReadIsNotOverwritten(t *testing.T) {
	fs := newFs(t, map[string]string{"/f": "a\n\nb"})
	reg := cache.NewRegistry()
	r := NewResolver(fs, nil, WithCache(cache.New[Result](reg, 8)))
	ctx := context.Background()

	// The file changes after it was read but before the result is stored.
	fs.onClose = func() {
		fs.onClose = nil
		require.NoError(t, afero.WriteFile(fs.Fs, "/f", []byte("1\n2\n3\n4\n5\n"), 0644))
		reg.InvalidateAll("/f")
	}

	first, ok := r.Resolve(ctx, "/f", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 3, LOC: 2}, first)

	second, ok := r.Resolve(ctx, "/f", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 6, LOC: 5}, second, "stale counts must not survive the invalidation")
}

func TestResolve_CancelledResultNotCached(t *testing.T) {
	fs := newFs(t, map[string]string{"/a.txt": "a"})
	results := cache.New[Result](cache.NewRegistry(), 8)
	r := NewResolver(fs, nil, WithCache(results))

	ctx, cancel := context.WithCancel(context.Background())
	fs.onRead = cancel
	_, ok := r.Resolve(ctx, "/a.txt", Options{})
	require.False(t, ok)
	assert.Equal(t, 0, results.Len())
}

func TestResolve_TextWithOddBytesIsCounted(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/a.eps":    "%!PS-Adobe-3.0 EPSF-3.0\n%%EOF\n",
		"/bell.txt": "a\x07\n\nb",
		"/u16.txt":  "\xff\xfea\x00\n\x00b\x00",
	})
	r := NewResolver(fs, nil)
	ctx := context.Background()

	got, ok := r.Resolve(ctx, "/a.eps", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 3, LOC: 2}, got)

	got, ok = r.Resolve(ctx, "/bell.txt", Options{})
	require.True(t, ok)
	assert.Equal(t, Counts{Total: 3, LOC: 2}, got)

	_, ok = r.Resolve(ctx, "/u16.txt", Options{})
	assert.True(t, ok)
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		binary bool
	}{
		{"text", "hello world\n", false},
		{"json", `{"a": 1}`, false},
		{"null byte", "hello\x00world", true},
		{"empty", "", false},
		{"pdf", "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n", true},
		{"postscript", "%!PS-Adobe-3.0 EPSF-3.0\n%%BoundingBox: 0 0 100 100\nnewpath\n", false},
		{"single control byte", "ding\x07 dong\nline with \x1b[0m escape\n", false},
		{"utf8 multibyte", "héllo wörld ✓ 日本語\n", false},
		{"utf8 bom", "\xef\xbb\xbfhello\n", false},
		{"utf16 le bom", "\xff\xfeh\x00i\x00\n\x00", false},
		{"utf16 be bom", "\xfe\xff\x00h\x00i", false},
		{"utf32 be bom", "\x00\x00\xfe\xff\x00\x00\x00h", false},
		{"mostly control bytes", strings.Repeat("\x01\x02\x03\x04ab", 10), true},
		{"invalid utf8 above threshold", strings.Repeat("abcdefg\xff\xfe\xfd", 8), true},
		{"few invalid bytes", strings.Repeat("a", 100) + "\xff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binary, head, err := IsBinary(strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.binary, binary)
			assert.Equal(t, tt.data, string(head))
		})
	}
}
