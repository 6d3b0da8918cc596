package loc

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a file is inspected to decide text vs binary.
const sniffLen = 512

// suspiciousPercent is the share of non-text bytes above which content is
// binary. At least minDecide bytes are seen before deciding early.
const (
	suspiciousPercent = 10
	minDecide         = 32
)

var textBOMs = [][]byte{
	{0xef, 0xbb, 0xbf},       // UTF-8
	{0x00, 0x00, 0xfe, 0xff}, // UTF-32 BE
	{0xff, 0xfe, 0x00, 0x00}, // UTF-32 LE
	{0x84, 0x31, 0x95, 0x33}, // GB 18030
}

var utf16BOMs = [][]byte{
	{0xfe, 0xff},
	{0xff, 0xfe},
}

// IsBinary reports whether the content read from r looks binary. It reads
// at most sniffLen bytes and returns them so the caller can reuse them.
//
// Content with a Unicode BOM is text. PDF is binary. Otherwise a NUL byte,
// or more than 10% of bytes that are neither printable ASCII, common control
// characters nor part of a valid UTF-8 sequence, means binary.
func IsBinary(r io.Reader) (bool, []byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, nil, err
	}
	head = head[:n]
	return looksBinary(head), head, nil
}

func looksBinary(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	for _, bom := range textBOMs {
		if bytes.HasPrefix(head, bom) {
			return false
		}
	}
	if mimetype.Detect(head).Is("application/pdf") {
		return true
	}
	for _, bom := range utf16BOMs {
		if bytes.HasPrefix(head, bom) {
			return false
		}
	}

	total := len(head)
	suspicious := 0
	for i := 0; i < total; i++ {
		b := head[i]
		if b == 0 {
			return true
		}
		if (b >= 7 && b <= 14) || (b >= 32 && b <= 127) {
			continue
		}
		if k := utf8Continuations(b); k > 0 && i+k < total {
			if continuationBytes(head[i+1 : i+1+k]) {
				i += k
				continue
			}
		}
		suspicious++
		if i >= minDecide && suspicious*100/total > suspiciousPercent {
			return true
		}
	}
	return suspicious*100/total > suspiciousPercent
}

// utf8Continuations returns how many continuation bytes follow a UTF-8
// lead byte, or 0 if b is not one.
func utf8Continuations(b byte) int {
	switch {
	case b >= 0xc0 && b <= 0xdf:
		return 1
	case b >= 0xe0 && b <= 0xef:
		return 2
	case b >= 0xf0 && b <= 0xf7:
		return 3
	}
	return 0
}

func continuationBytes(p []byte) bool {
	for _, b := range p {
		if b < 0x80 || b > 0xbf {
			return false
		}
	}
	return true
}
