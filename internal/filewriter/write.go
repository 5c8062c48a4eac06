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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cardinalhq/karld/internal/constants"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/pipeline"
)

// FileOptions controls how WriteFile persists rows.
type FileOptions struct {
	// Append adds to an existing file instead of truncating it.
	Append bool
	// LineBufferSize is the number of rows written between flushes.
	// Zero means constants.LineBufferSize.
	LineBufferSize int
	// Encoding is the output character encoding. Empty means UTF-8.
	Encoding string
	// Compression of the output. Auto derives it from the file extension.
	Compression filereader.Compression
}

// ShardInfo describes one written file.
type ShardInfo struct {
	// Index is the zero-based shard number, 0 for WriteFile.
	Index int
	Path  string
	Name  string
	// Records is the number of rows written.
	Records int64
	// Bytes is the number of bytes written to disk by this call.
	Bytes int64
	// Checksum is the xxhash64 of the bytes written to disk by this call.
	Checksum uint64
}

func lineBufferSizeOrDefault(n int) int {
	if n <= 0 {
		return constants.LineBufferSize
	}
	return n
}

// writeRows serializes rows in batches of bufferSize, calling flush after
// each batch. It returns the number of rows written.
func writeRows[T any](ctx context.Context, rows pipeline.Reader[T], rw RowWriter[T], bufferSize int, flush func() error) (int64, error) {
	batcher, err := pipeline.NewBatcher(rows, bufferSize)
	if err != nil {
		return 0, err
	}

	var written int64
	for {
		batch, err := batcher.Next(ctx)
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		for _, row := range batch {
			if err := rw.WriteRow(row); err != nil {
				return written, fmt.Errorf("write row %d: %w", written, err)
			}
			written++
		}
		if err := rw.Flush(); err != nil {
			return written, err
		}
		if err := flush(); err != nil {
			return written, err
		}
	}
}

// WriteAll serializes every row of rows to w, flushing after each batch of
// lineBufferSize rows. It does not close rows or w.
func WriteAll[T any](ctx context.Context, w io.Writer, rows pipeline.Reader[T], factory RowWriterFactory[T], lineBufferSize int) (int64, error) {
	if lineBufferSize < 0 {
		return 0, ErrInvalidBatchSize
	}
	buf := bufio.NewWriter(w)
	n, err := writeRows(ctx, rows, factory.NewRowWriter(buf), lineBufferSizeOrDefault(lineBufferSize), buf.Flush)
	recordsWrittenCounter.Add(ctx, n)
	return n, err
}

// WriteFile writes every row of rows to path. The file is closed before
// returning, even on error. Rows are not closed.
func WriteFile[T any](ctx context.Context, path string, rows pipeline.Reader[T], factory RowWriterFactory[T], opts FileOptions) (ShardInfo, error) {
	if opts.LineBufferSize < 0 {
		return ShardInfo{}, ErrInvalidBatchSize
	}
	compression := opts.Compression
	if compression == filereader.CompressionAuto {
		compression = filereader.DetectCompression(path)
	}

	sink, err := openSink(path, sinkOptions{
		append:      opts.Append,
		encoding:    opts.Encoding,
		compression: compression,
	})
	if err != nil {
		return ShardInfo{}, err
	}

	n, werr := writeRows(ctx, rows, factory.NewRowWriter(sink), lineBufferSizeOrDefault(opts.LineBufferSize), sink.Flush)
	cerr := sink.Close()
	info := sink.info(0, n)
	recordsWrittenCounter.Add(ctx, n)
	bytesWrittenCounter.Add(ctx, info.Bytes)

	if werr != nil {
		return info, fmt.Errorf("write %s: %w", path, werr)
	}
	if cerr != nil {
		return info, cerr
	}
	return info, nil
}
