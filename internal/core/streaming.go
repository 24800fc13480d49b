package core

// streaming.go wraps uploaded files so the CSV reader sees clean UTF-8:
//
//   - a leading UTF-8 BOM (common in files saved from Excel) is dropped
//   - invalid UTF-8 sequences are replaced with U+FFFD
//   - bytes read are counted for the size limit and progress logging
//
// Everything is streamed; memory stays bounded by the transformer buffers.

import (
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned by a CountingReader once its limit is passed.
var ErrFileTooLarge = errors.New("file too large")

// CountingReader counts bytes and optionally enforces a limit.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64 // 0 disables the check
}

// NewCountingReader wraps r. A positive limit makes Read fail with
// ErrFileTooLarge once more than limit bytes have been read.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// NewSanitizingReader strips a UTF-8 BOM and replaces invalid UTF-8.
func NewSanitizingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// WrapForStreaming applies size counting to the raw bytes, then sanitising.
// Counting sits below the decoder so the limit applies to what the client sent.
func WrapForStreaming(r io.Reader, limit int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, limit)
	return NewSanitizingReader(counter), counter
}
