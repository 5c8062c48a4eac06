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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Batcher splits an upstream reader into order-preserving batches of at most
// size items. It pulls only as many items as the batch being built needs, so
// in-flight memory is O(size) no matter how long the upstream runs.
//
// The final batch may be shorter than size. An empty upstream yields no batches.
// If the upstream fails mid-batch, the partial batch is discarded and the error
// is returned.
type Batcher[T any] struct {
	src     Reader[T]
	size    int
	done    bool
	closed  bool
	batches int64
}

var _ Reader[[]int] = (*Batcher[int])(nil)

// NewBatcher returns a Batcher over src. The Batcher owns src and closes it on Close.
func NewBatcher[T any](src Reader[T], size int) (*Batcher[T], error) {
	if src == nil {
		return nil, errors.New("source reader is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	return &Batcher[T]{src: src, size: size}, nil
}

// Next returns the next batch. The returned slice is owned by the caller.
func (b *Batcher[T]) Next(ctx context.Context) ([]T, error) {
	if b.closed {
		return nil, ErrReaderClosed
	}
	if b.done {
		return nil, io.EOF
	}

	batch := make([]T, 0, b.size)
	for len(batch) < b.size {
		item, err := b.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			b.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, item)
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}

	b.batches++
	itemsBatchedCounter.Add(ctx, int64(len(batch)), otelmetric.WithAttributes(
		attribute.String("reader", "Batcher"),
	))
	batchesOutCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "Batcher"),
	))
	return batch, nil
}

// Close closes the upstream reader.
func (b *Batcher[T]) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.src.Close()
}

// BatchesReturned returns the number of batches handed out so far.
func (b *Batcher[T]) BatchesReturned() int64 {
	return b.batches
}

// Batch drains src into batches of at most size items.
func Batch[T any](ctx context.Context, size int, src Reader[T]) ([][]T, error) {
	b, err := NewBatcher(src, size)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()
	return ReadAll[[]T](ctx, b)
}
