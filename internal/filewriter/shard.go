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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cardinalhq/karld/internal/constants"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/helpers"
	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/pipeline"
)

// SplitOptions controls how Split divides a stream into shards.
type SplitOptions struct {
	// OutDir receives the shard files. It is created if missing.
	OutDir string
	// BaseName is the file name each shard index is prefixed to.
	BaseName string
	// MaxLines is the maximum number of records per shard.
	// Zero means constants.DefaultShardMaxLines.
	MaxLines int
	// LineBufferSize is the number of records written between flushes.
	LineBufferSize int
	// Encoding is the output character encoding. Empty means UTF-8.
	Encoding string
	// Compression of every shard. Auto derives it from BaseName; a
	// matching extension is appended when BaseName lacks one.
	Compression filereader.Compression
}

// ShardName returns the file name of shard index for base.
func ShardName(index int, base string) string {
	return strconv.Itoa(index) + "_" + base
}

func (o SplitOptions) resolve() (SplitOptions, error) {
	if o.BaseName == "" {
		return o, errors.New("filewriter: base name is required")
	}
	if o.MaxLines < 0 || o.LineBufferSize < 0 {
		return o, ErrInvalidBatchSize
	}
	if o.MaxLines == 0 {
		o.MaxLines = constants.DefaultShardMaxLines
	}
	o.LineBufferSize = lineBufferSizeOrDefault(o.LineBufferSize)
	if o.OutDir == "" {
		o.OutDir = "."
	}

	switch o.Compression {
	case filereader.CompressionAuto:
		o.Compression = filereader.DetectCompression(o.BaseName)
	case filereader.CompressionGzip:
		if filereader.DetectCompression(o.BaseName) != filereader.CompressionGzip {
			o.BaseName += ".gz"
		}
	case filereader.CompressionZstd:
		if filereader.DetectCompression(o.BaseName) != filereader.CompressionZstd {
			o.BaseName += ".zst"
		}
	}
	return o, nil
}

// Split writes rows into shard files named {index}_{BaseName}, each holding
// up to MaxLines records in input order, shard 0 first. Each shard is fully
// written and closed before the next one is opened. On error the shards
// already written are left in place and returned alongside the error.
// Split does not close rows.
func Split[T any](ctx context.Context, rows pipeline.Reader[T], factory RowWriterFactory[T], opts SplitOptions) ([]ShardInfo, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", opts.OutDir, err)
	}

	batcher, err := pipeline.NewBatcher(rows, opts.MaxLines)
	if err != nil {
		return nil, err
	}

	ll := logctx.FromContext(ctx)
	var shards []ShardInfo
	for {
		batch, err := batcher.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return shards, fmt.Errorf("read shard %d: %w", len(shards), err)
		}

		info, err := writeShard(ctx, len(shards), batch, factory, opts)
		if err != nil {
			if info.Path != "" {
				shards = append(shards, info)
			}
			return shards, err
		}
		shards = append(shards, info)
		ll.Debug("Wrote shard",
			slog.Int("index", info.Index),
			slog.String("path", info.Path),
			slog.Int64("records", info.Records),
			slog.Int64("bytes", info.Bytes))
	}

	shardsWrittenCounter.Add(ctx, int64(len(shards)))
	return shards, nil
}

func writeShard[T any](ctx context.Context, index int, batch []T, factory RowWriterFactory[T], opts SplitOptions) (ShardInfo, error) {
	path := filepath.Join(opts.OutDir, ShardName(index, opts.BaseName))
	sink, err := openSink(path, sinkOptions{
		encoding:    opts.Encoding,
		compression: opts.Compression,
	})
	if err != nil {
		return ShardInfo{}, fmt.Errorf("shard %d: %w", index, err)
	}

	n, werr := writeRows(ctx, pipeline.NewSliceSource(batch), factory.NewRowWriter(sink), opts.LineBufferSize, sink.Flush)
	cerr := sink.Close()
	info := sink.info(index, n)
	recordsWrittenCounter.Add(ctx, n)
	bytesWrittenCounter.Add(ctx, info.Bytes)

	if werr != nil {
		return info, fmt.Errorf("shard %d: %w", index, werr)
	}
	if cerr != nil {
		return info, fmt.Errorf("shard %d: %w", index, cerr)
	}
	return info, nil
}

// SplitFile splits the raw lines of the file at path into shards of
// maxLines lines. outDir defaults to the directory of path and maxLines to
// constants.SplitFileMaxLines. Compressed input is decompressed and its
// compression extension dropped from the shard names.
func SplitFile(ctx context.Context, path, outDir string, maxLines int) ([]ShardInfo, error) {
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if maxLines <= 0 {
		maxLines = constants.SplitFileMaxLines
	}

	lines, err := filereader.OpenLines(path, filereader.OpenOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = lines.Close() }()

	base := helpers.StripCompressionExt(filepath.Base(path))

	return Split[string](ctx, lines, LineWriterFactory{}, SplitOptions{
		OutDir:      outDir,
		BaseName:    base,
		MaxLines:    maxLines,
		Compression: filereader.CompressionNone,
	})
}
