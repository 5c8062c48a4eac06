// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package filereader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression names a stream compression format.
type Compression string

const (
	CompressionAuto Compression = ""
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DetectCompression picks a compression from a file name extension.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// ParseCompression validates a configured compression name.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// OpenOptions controls how Open decodes a file.
type OpenOptions struct {
	// Encoding is the character encoding of the file. Empty means UTF-8.
	Encoding string
	// Compression of the file. Auto detects it from the extension.
	Compression Compression
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var errs []error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open opens path for reading, decompressing and decoding it as configured.
// The caller owns the returned ReadCloser.
func Open(path string, opts OpenOptions) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	rc := &readCloser{Reader: file, closers: []io.Closer{file}}

	compression := opts.Compression
	if compression == CompressionAuto {
		compression = DetectCompression(path)
	}

	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", path, err)
		}
		rc.Reader = gz
		rc.closers = append(rc.closers, gz)
	case CompressionZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, closerFunc(func() error {
			zr.Close()
			return nil
		}))
	case CompressionNone:
	default:
		_ = file.Close()
		return nil, fmt.Errorf("unknown compression %q", compression)
	}

	decoded, err := NewDecodingReader(rc.Reader, opts.Encoding)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	rc.Reader = decoded
	return rc, nil
}

// OpenCSV opens a delimited file as a stream of rows.
func OpenCSV(path string, dialect Dialect, opts OpenOptions) (*CSVReader, error) {
	rc, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewCSVReader(rc, dialect)
}

// OpenJSONLines opens a JSON lines file as a stream of documents of type T.
func OpenJSONLines[T any](path string, opts OpenOptions) (*JSONLinesReader[T], error) {
	rc, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewJSONLinesReader[T](rc)
}

// OpenLines opens a file as a stream of raw lines.
func OpenLines(path string, opts OpenOptions) (*LineReader, error) {
	rc, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewLineReader(rc), nil
}
