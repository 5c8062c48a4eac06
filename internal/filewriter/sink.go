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

package filewriter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/cardinalhq/karld/internal/filereader"
)

// hashingWriter counts and hashes the bytes that reach the file.
type hashingWriter struct {
	w      io.Writer
	digest *xxhash.Digest
	n      int64
}

func (h *hashingWriter) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	h.n += int64(n)
	_, _ = h.digest.Write(p[:n])
	return n, err
}

// fileSink layers buffering, character encoding and compression over a file.
// Writes flow buf -> encoder -> compressor -> hasher -> file.
type fileSink struct {
	path       string
	file       *os.File
	hasher     *hashingWriter
	compressor io.WriteCloser
	encoder    io.WriteCloser
	buf        *bufio.Writer
}

type sinkOptions struct {
	append      bool
	encoding    string
	compression filereader.Compression
}

func openSink(path string, opts sinkOptions) (*fileSink, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if opts.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for writing: %w", path, err)
	}

	s := &fileSink{
		path:   path,
		file:   file,
		hasher: &hashingWriter{w: file, digest: xxhash.New()},
	}

	var next io.Writer = s.hasher
	switch opts.compression {
	case filereader.CompressionGzip:
		s.compressor = gzip.NewWriter(next)
		next = s.compressor
	case filereader.CompressionZstd:
		zw, err := zstd.NewWriter(next)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to create zstd writer for %s: %w", path, err)
		}
		s.compressor = zw
		next = zw
	case filereader.CompressionAuto, filereader.CompressionNone:
	default:
		_ = file.Close()
		return nil, fmt.Errorf("unknown compression %q", opts.compression)
	}

	enc, err := filereader.NewEncodingWriter(next, opts.encoding)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	s.encoder = enc
	s.buf = bufio.NewWriterSize(enc, 64*1024)
	return s, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush pushes buffered text through the encoder. Compressed output may still
// be held by the compressor until Close.
func (s *fileSink) Flush() error {
	return s.buf.Flush()
}

// Close flushes every layer and closes the file. All failures are reported.
func (s *fileSink) Close() error {
	var errs *multierror.Error
	if err := s.buf.Flush(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("flush %s: %w", s.path, err))
	}
	if err := s.encoder.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("encode %s: %w", s.path, err))
	}
	if s.compressor != nil {
		if err := s.compressor.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("compress %s: %w", s.path, err))
		}
	}
	if err := s.file.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close %s: %w", s.path, err))
	}
	return errs.ErrorOrNil()
}

func (s *fileSink) info(index int, records int64) ShardInfo {
	return ShardInfo{
		Index:    index,
		Path:     s.path,
		Name:     filepath.Base(s.path),
		Records:  records,
		Bytes:    s.hasher.n,
		Checksum: s.hasher.digest.Sum64(),
	}
}
