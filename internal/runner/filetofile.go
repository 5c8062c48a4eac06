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

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cardinalhq/karld/internal/constants"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/pipeline"
)

// OpenFunc opens the file at path as a stream of records.
type OpenFunc[T any] func(path string) (pipeline.Reader[T], error)

// RowsFunc consumes a stream of records and produces a result.
type RowsFunc[T, R any] func(ctx context.Context, rows pipeline.Reader[T]) (R, error)

// TransformFunc turns a stream of input records into a stream of output records.
type TransformFunc[In, Out any] func(rows pipeline.Reader[In]) pipeline.Reader[Out]

// CombineFunc turns a lazily opened sequence of inputs into one output stream.
type CombineFunc[In, Out any] func(ctx context.Context, inputs pipeline.Reader[pipeline.Reader[In]]) (pipeline.Reader[Out], error)

// WriteFunc persists rows to path.
type WriteFunc[T any] func(ctx context.Context, path string, rows pipeline.Reader[T]) (filewriter.ShardInfo, error)

// CSVOptions configures how the CSV helpers read and write files.
type CSVOptions struct {
	Dialect filereader.Dialect
	Open    filereader.OpenOptions
	Write   filewriter.FileOptions
}

// DefaultCSVOptions reads and writes comma separated UTF-8.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Dialect: filereader.DefaultDialect()}
}

// CSVOpener returns an OpenFunc reading CSV rows.
func CSVOpener(opts CSVOptions) OpenFunc[[]string] {
	return func(path string) (pipeline.Reader[[]string], error) {
		r, err := filereader.OpenCSV(path, opts.Dialect, opts.Open)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// CSVWriter returns a WriteFunc writing CSV rows.
func CSVWriter(opts CSVOptions) WriteFunc[[]string] {
	factory := filewriter.CSVWriterFactory{Dialect: opts.Dialect}
	return func(ctx context.Context, path string, rows pipeline.Reader[[]string]) (filewriter.ShardInfo, error) {
		return filewriter.WriteFile(ctx, path, rows, factory, opts.Write)
	}
}

// OutputPath is where file-to-file runs write the output for name:
// outDir/{prefix}{lower(name)}.
func OutputPath(outDir, prefix, name string) string {
	return filepath.Join(outDir, prefix+strings.ToLower(name))
}

// CSVFileConsumer returns a FileFunc that reads a file as CSV and passes the
// rows to consume. The file is closed when consume returns.
func CSVFileConsumer[R any](consume RowsFunc[[]string, R], opts CSVOptions) FileFunc[R] {
	open := CSVOpener(opts)
	return func(ctx context.Context, fp filewalk.FilePath) (R, error) {
		var zero R
		rows, err := open(fp.Path)
		if err != nil {
			return zero, err
		}
		defer func() { _ = rows.Close() }()
		return consume(ctx, rows)
	}
}

// CSVFileToFile returns a FileFunc that reads a file as CSV, transforms the
// rows and writes them as CSV to OutputPath(outDir, prefix, fp.Name).
func CSVFileToFile(transform TransformFunc[[]string, []string], prefix, outDir string, opts CSVOptions) FileFunc[filewriter.ShardInfo] {
	open := CSVOpener(opts)
	write := CSVWriter(opts)
	return func(ctx context.Context, fp filewalk.FilePath) (filewriter.ShardInfo, error) {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return filewriter.ShardInfo{}, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}
		in, err := open(fp.Path)
		if err != nil {
			return filewriter.ShardInfo{}, err
		}
		defer func() { _ = in.Close() }()

		out := transform(in)
		defer func() { _ = out.Close() }()
		return write(ctx, OutputPath(outDir, prefix, fp.Name), out)
	}
}

// MultiInSingleOut opens every path in turn as the combined stream needs it,
// combines the inputs and writes the result to outPath. Every opened input
// is closed before returning.
func MultiInSingleOut[In, Out any](ctx context.Context, paths []string, open OpenFunc[In], combine CombineFunc[In, Out], write WriteFunc[Out], outPath string) (filewriter.ShardInfo, error) {
	var opened []pipeline.Reader[In]
	inputs := pipeline.Map(pipeline.NewSliceSource(paths), func(path string) (pipeline.Reader[In], error) {
		r, err := open(path)
		if err != nil {
			return nil, err
		}
		opened = append(opened, r)
		return r, nil
	})

	out, err := combine(ctx, inputs)
	if err != nil {
		return filewriter.ShardInfo{}, errors.Join(err, pipeline.CloseAll(opened))
	}

	info, werr := write(ctx, outPath, out)
	return info, errors.Join(werr, out.Close(), pipeline.CloseAll(opened))
}

// Concat is a CombineFunc that chains the inputs in order.
func Concat[T any](_ context.Context, inputs pipeline.Reader[pipeline.Reader[T]]) (pipeline.Reader[T], error) {
	return pipeline.NewChainReader[T](inputs), nil
}

// CSVFilesToFile combines the given CSV files into the single file
// OutputPath(outDir, prefix, outName).
func CSVFilesToFile(ctx context.Context, combine CombineFunc[[]string, []string], prefix, outDir, outName string, files []filewalk.FilePath, opts CSVOptions) (filewriter.ShardInfo, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return filewriter.ShardInfo{}, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}
	paths := make([]string, len(files))
	for i, fp := range files {
		paths[i] = fp.Path
	}
	return MultiInSingleOut(ctx, paths, CSVOpener(opts), combine, CSVWriter(opts), OutputPath(outDir, prefix, outName))
}

func batchSizeOrDefault(n int) int {
	if n <= 0 {
		return constants.DefaultBatchSize
	}
	return n
}

// DistributeFile reads the file at path with open, batches its records and
// distributes the batches to pool.
func DistributeFile[T, R any](pool *Pool, path string, open OpenFunc[T], batchSize int, fn BatchFunc[T, R]) (*Distributor[T, R], error) {
	rows, err := open(path)
	if err != nil {
		return nil, err
	}
	batches, err := pipeline.NewBatcher(rows, batchSizeOrDefault(batchSize))
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return Distribute[T, R](pool, batches, fn)
}

// DistributeFiles reads every matching file under root in walk order, opening
// each one only when the previous is exhausted, and distributes batches of
// their records to pool. A batch may hold records of consecutive files.
func DistributeFiles[T, R any](pool *Pool, root string, filter filewalk.Filter, open OpenFunc[T], batchSize int, fn BatchFunc[T, R]) (*Distributor[T, R], error) {
	files := filewalk.NewFilteredReader(filewalk.Walk(root), filter)
	readers := pipeline.Map(files, func(fp filewalk.FilePath) (pipeline.Reader[T], error) {
		return open(fp.Path)
	})
	batches, err := pipeline.NewBatcher[T](pipeline.NewChainReader[T](readers), batchSizeOrDefault(batchSize))
	if err != nil {
		_ = readers.Close()
		return nil, err
	}
	return Distribute[T, R](pool, batches, fn)
}
