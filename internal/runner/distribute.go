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

	"github.com/cardinalhq/karld/internal/pipeline"
)

// BatchFunc transforms one batch of records.
type BatchFunc[T, R any] func(ctx context.Context, batch []T) (R, error)

// MaxOutstanding is the admission limit for a pool of the given size: a new
// batch is submitted only while fewer than 1.5 × workers tasks are pending.
func MaxOutstanding(workers int) int {
	if workers <= 0 {
		workers = 1
	}
	return (3*workers + 1) / 2
}

// Distributor hands batches to a pool under admission control and returns
// their results in completion order. It is a pipeline.Reader over results.
type Distributor[T, R any] struct {
	pool    *Pool
	batches pipeline.Reader[[]T]
	fn      BatchFunc[T, R]
	limit   int

	outstanding []*Future[R]
	notify      chan struct{}
	srcDone     bool
	closed      bool
	submitted   int64
}

var _ pipeline.Reader[int] = (*Distributor[string, int])(nil)

// Distribute returns a reader that submits each batch from batches to pool
// as a call to fn, keeping at most MaxOutstanding(pool.Size()) tasks pending.
// Results come back in whatever order tasks finish. A failed task's error is
// returned by the Next call that would have returned its result; later calls
// continue with the remaining tasks. The Distributor owns batches.
func Distribute[T, R any](pool *Pool, batches pipeline.Reader[[]T], fn BatchFunc[T, R]) (*Distributor[T, R], error) {
	if pool == nil || batches == nil || fn == nil {
		return nil, errors.New("runner: pool, batches and fn are required")
	}
	return &Distributor[T, R]{
		pool:    pool,
		batches: batches,
		fn:      fn,
		limit:   MaxOutstanding(pool.Size()),
		notify:  make(chan struct{}, 1),
	}, nil
}

func (d *Distributor[T, R]) signal() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Next returns the next finished result, submitting more batches as
// admission allows.
func (d *Distributor[T, R]) Next(ctx context.Context) (R, error) {
	var zero R
	if d.closed {
		return zero, pipeline.ErrReaderClosed
	}

	for {
		for !d.srcDone && len(d.outstanding) < d.limit {
			batch, err := d.batches.Next(ctx)
			if errors.Is(err, io.EOF) {
				d.srcDone = true
				break
			}
			if err != nil {
				return zero, err
			}
			name := fmt.Sprintf("batch-%d", d.submitted)
			f, err := submit(ctx, d.pool, name, func(ctx context.Context) (R, error) {
				return d.fn(ctx, batch)
			}, d.signal)
			if err != nil {
				return zero, err
			}
			d.submitted++
			d.outstanding = append(d.outstanding, f)
			batchesDistributed.Add(ctx, 1)
		}

		if len(d.outstanding) == 0 {
			return zero, io.EOF
		}

		for i, f := range d.outstanding {
			if f.Ready() {
				d.outstanding = append(d.outstanding[:i], d.outstanding[i+1:]...)
				return f.value, f.err
			}
		}

		select {
		case <-d.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Outstanding returns the number of submitted batches whose results have not
// been returned yet.
func (d *Distributor[T, R]) Outstanding() int {
	return len(d.outstanding)
}

// Close stops submitting, waits for pending tasks and closes the batch source.
// Results of pending tasks are discarded.
func (d *Distributor[T, R]) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	for _, f := range d.outstanding {
		<-f.Done()
	}
	d.outstanding = nil
	return d.batches.Close()
}
