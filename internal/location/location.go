// Package location defines an immutable source span and the per-parse
// helper that converts parser byte offsets into the negotiated code-unit
// encoding (UTF-8, UTF-16, or UTF-32).
package location

import "unicode/utf8"

// Encoding identifies the code-unit width negotiated with the editor client.
// Location columns are always expressed in this unit, never in raw bytes
// unless Encoding is UTF8.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16
	UTF32
)

// Location is a structural, immutable source span. Lines are zero-based to
// match the parser's own numbering; columns are code units in the
// negotiated Encoding.
type Location struct {
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
}

// New builds a Location from already-converted code-unit columns.
func New(startLine, endLine, startColumn, endColumn int) Location {
	return Location{StartLine: startLine, EndLine: endLine, StartColumn: startColumn, EndColumn: endColumn}
}

// Equal reports structural equality; Location has no other comparison.
func (l Location) Equal(other Location) bool {
	return l == other
}

// Zero is the Location used by lazily materialized entries (e.g. singleton
// classes created on demand) that have no direct source span.
var Zero = Location{}

// OffsetCache converts byte offsets produced by the parser into code-unit
// columns for a single parse of a single file's content. One cache instance
// is built per index_single call and shared by every Location derived from
// it; it is discarded once that call returns.
type OffsetCache struct {
	encoding Encoding
	lines    [][]byte // line content, trailing newline stripped, zero-copy slices
}

// NewOffsetCache scans content once (mirroring a single-pass line scan) and
// retains zero-copy slices into it for later column conversion.
func NewOffsetCache(content []byte, encoding Encoding) *OffsetCache {
	c := &OffsetCache{encoding: encoding}
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			end := i
			if end > start && content[end-1] == '\r' {
				end--
			}
			c.lines = append(c.lines, content[start:end])
			start = i + 1
		}
	}
	if start <= len(content) {
		c.lines = append(c.lines, content[start:])
	}
	return c
}

// Encoding reports the negotiated encoding this cache converts into.
func (c *OffsetCache) Encoding() Encoding {
	return c.encoding
}

// Column converts a zero-based line and a byte offset within that line into
// a code-unit column in the cache's encoding. Out-of-range lines degrade to
// returning the byte offset unchanged rather than panicking.
func (c *OffsetCache) Column(line, byteOffset int) int {
	if c.encoding == UTF8 {
		return byteOffset
	}
	if line < 0 || line >= len(c.lines) {
		return byteOffset
	}
	b := c.lines[line]
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(b) {
		byteOffset = len(b)
	}
	b = b[:byteOffset]
	switch c.encoding {
	case UTF32:
		return utf8.RuneCount(b)
	case UTF16:
		return utf16Length(b)
	default:
		return byteOffset
	}
}

// utf16Length counts UTF-16 code units represented by utf-8 bytes b,
// accounting for surrogate pairs on astral-plane runes.
func utf16Length(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}

// FromByteSpan builds a Location from a byte-offset span using cache to
// convert both endpoints into code units.
func FromByteSpan(cache *OffsetCache, startLine, endLine, startByte, endByte int) Location {
	return Location{
		StartLine:   startLine,
		EndLine:     endLine,
		StartColumn: cache.Column(startLine, startByte),
		EndColumn:   cache.Column(endLine, endByte),
	}
}
