package core

// input.go prepares a raw file for the CSV reader without buffering it whole:
//
//   - the byte counter sits directly on the file so progress matches file size
//   - a leading UTF-8 BOM (EF BB BF) written by Excel is dropped
//   - invalid UTF-8 bytes are replaced with '?' so one bad byte cannot
//     derail the CSV tokenizer

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CountingReader tracks how many bytes have been read from the underlying reader.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// NewCountingReader wraps r. total is the expected size, or 0 if unknown.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Percent returns read progress in the range 0-100, or 0 when Total is unknown.
func (c *CountingReader) Percent() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}

// SanitizingReader replaces every byte that is not part of a valid UTF-8
// sequence with '?'. Valid multi-byte runes pass through untouched.
type SanitizingReader struct {
	br      *bufio.Reader
	pending []byte // tail of a rune that did not fit the caller's buffer
	err     error
}

// NewSanitizingReader wraps r, dropping a leading UTF-8 BOM if present.
func NewSanitizingReader(r io.Reader) *SanitizingReader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &SanitizingReader{br: br}
}

// Read implements io.Reader.
func (s *SanitizingReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}
		if s.err != nil {
			break
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			s.err = err
			break
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		var buf [utf8.UTFMax]byte
		w := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], buf[c:w]...)
		}
	}

	if n > 0 {
		return n, nil
	}
	return 0, s.err
}

// wrapInput stacks the counting and sanitizing readers over a raw file.
func wrapInput(r io.Reader, size int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, size)
	return NewSanitizingReader(counter), counter
}
