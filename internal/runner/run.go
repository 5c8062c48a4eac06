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
	"io"
	"log/slog"

	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/logctx"
)

// FileFunc transforms one input file.
type FileFunc[R any] func(ctx context.Context, fp filewalk.FilePath) (R, error)

// RunOptions selects the files of a run and sizes its pool.
type RunOptions struct {
	// Filter keeps the files to process. Nil keeps every file.
	Filter filewalk.Filter
	// Workers is the pool size for pooled runs. Zero means GOMAXPROCS.
	Workers int
}

// SerialRunFilesToFiles applies fn to every matching file under root, one at
// a time, in walk order. The first failure stops the run; results of the
// files processed before it are returned with the error.
func SerialRunFilesToFiles[R any](ctx context.Context, root string, fn FileFunc[R], opts RunOptions) ([]R, error) {
	files := filewalk.NewFilteredReader(filewalk.Walk(root), opts.Filter)
	defer func() { _ = files.Close() }()

	ll := logctx.FromContext(ctx)
	var results []R
	for {
		fp, err := files.Next(ctx)
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return results, err
		}

		ll.Debug("Processing file", slog.String("path", fp.Path))
		r, err := runTask(ctx, fp.Name, func(ctx context.Context) (R, error) { return fn(ctx, fp) })
		if err != nil {
			return results, fmt.Errorf("%s: %w", fp.Path, err)
		}
		results = append(results, r)
	}
}

// PoolRunFilesToFiles applies fn to every matching file under root on a
// worker pool. Results are returned in walk order regardless of completion
// order. If a task fails, the error of the earliest failing file in walk
// order is returned once reached; the remaining tasks still run to completion
// before this function returns.
func PoolRunFilesToFiles[R any](ctx context.Context, root string, fn FileFunc[R], opts RunOptions) ([]R, error) {
	pool := NewPool(opts.Workers)
	defer func() { _ = pool.Close() }()

	files := filewalk.NewFilteredReader(filewalk.Walk(root), opts.Filter)
	defer func() { _ = files.Close() }()

	type submitted struct {
		path   string
		future *Future[R]
	}

	var pending []submitted
	for {
		fp, err := files.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		f, err := Submit(ctx, pool, fp.Name, func(ctx context.Context) (R, error) { return fn(ctx, fp) })
		if err != nil {
			return nil, err
		}
		pending = append(pending, submitted{path: fp.Path, future: f})
	}

	logctx.FromContext(ctx).Debug("Submitted files to pool",
		slog.Int("files", len(pending)),
		slog.Int("workers", pool.Size()))

	results := make([]R, 0, len(pending))
	for _, s := range pending {
		r, err := s.future.Wait(ctx)
		if err != nil {
			return results, fmt.Errorf("%s: %w", s.path, err)
		}
		results = append(results, r)
	}
	return results, nil
}
