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

package merger

import (
	"cmp"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// mergeEntry is the heap entry for one source: its current head and the key
// derived from it.
type mergeEntry[T, K any] struct {
	key    K
	index  int
	head   T
	source pipeline.Reader[T]
}

type mergeHeap[T, K any] struct {
	entries []*mergeEntry[T, K]
	compare func(a, b K) int
}

func (h *mergeHeap[T, K]) Len() int { return len(h.entries) }

func (h *mergeHeap[T, K]) Less(i, j int) bool {
	if c := h.compare(h.entries[i].key, h.entries[j].key); c != 0 {
		return c < 0
	}
	return h.entries[i].index < h.entries[j].index
}

func (h *mergeHeap[T, K]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *mergeHeap[T, K]) Push(x any) { h.entries = append(h.entries, x.(*mergeEntry[T, K])) }

func (h *mergeHeap[T, K]) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	return e
}

// MergeReader merges rows from multiple readers that are each sorted by the
// same key. Output is in non-decreasing key order; ties are broken by the
// position of the source in the input list.
type MergeReader[T, K any] struct {
	sources    []pipeline.Reader[T]
	key        func(T) K
	heap       *mergeHeap[T, K]
	advanceTop bool
	closed     bool
	err        error
	count      int64
}

var _ pipeline.Reader[int] = (*MergeReader[int, int])(nil)

// NewMergeReader merges sources ordered by key using the natural ordering of K.
func NewMergeReader[T any, K cmp.Ordered](ctx context.Context, sources []pipeline.Reader[T], key func(T) K) (*MergeReader[T, K], error) {
	return NewMergeReaderFunc(ctx, sources, key, cmp.Compare[K])
}

// NewMergeReaderFunc merges sources ordered by key using compare.
//
// Requirements:
//   - Each source must return items in non-decreasing key order.
//   - Sources are closed when the MergeReader is closed.
//
// Zero sources, and sources that are empty, are allowed and contribute nothing.
func NewMergeReaderFunc[T, K any](ctx context.Context, sources []pipeline.Reader[T], key func(T) K, compare func(a, b K) int) (*MergeReader[T, K], error) {
	if key == nil {
		return nil, ErrKeyRequired
	}
	if compare == nil {
		return nil, errors.New("compare function is required")
	}

	mr := &MergeReader[T, K]{
		sources: sources,
		key:     key,
		heap:    &mergeHeap[T, K]{compare: compare},
	}

	if err := mr.prime(ctx); err != nil {
		_ = mr.Close()
		return nil, fmt.Errorf("failed to prime sources: %w", err)
	}
	return mr, nil
}

// prime pulls the first item of every source.
func (mr *MergeReader[T, K]) prime(ctx context.Context) error {
	for i, source := range mr.sources {
		if source == nil {
			return fmt.Errorf("source %d is nil", i)
		}
		item, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		mr.heap.entries = append(mr.heap.entries, &mergeEntry[T, K]{
			key:    mr.key(item),
			index:  i,
			head:   item,
			source: source,
		})
	}
	heap.Init(mr.heap)
	return nil
}

// Next returns the smallest head across all sources.
func (mr *MergeReader[T, K]) Next(ctx context.Context) (T, error) {
	var zero T
	if mr.closed {
		return zero, pipeline.ErrReaderClosed
	}
	if mr.err != nil {
		return zero, mr.err
	}

	// The source whose head was returned last time is advanced now, so that a
	// failing source reports on the call that needs its next value.
	if mr.advanceTop {
		mr.advanceTop = false
		top := mr.heap.entries[0]
		item, err := top.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			heap.Pop(mr.heap)
			sourcesExhaustedCounter.Add(ctx, 1)
		case err != nil:
			mr.err = fmt.Errorf("failed to advance source %d: %w", top.index, err)
			return zero, mr.err
		default:
			top.head = item
			top.key = mr.key(item)
			heap.Fix(mr.heap, 0)
		}
	}

	if mr.heap.Len() == 0 {
		return zero, io.EOF
	}

	mr.advanceTop = true
	mr.count++
	itemsMergedCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "MergeReader"),
	))
	return mr.heap.entries[0].head, nil
}

// Close closes all sources.
func (mr *MergeReader[T, K]) Close() error {
	if mr.closed {
		return nil
	}
	mr.closed = true
	mr.heap.entries = nil
	return pipeline.CloseAll(mr.sources)
}

// ActiveSourceCount returns the number of sources that still have data.
func (mr *MergeReader[T, K]) ActiveSourceCount() int {
	if mr.closed {
		return 0
	}
	return mr.heap.Len()
}

// TotalRowsReturned returns the number of items returned so far.
func (mr *MergeReader[T, K]) TotalRowsReturned() int64 {
	return mr.count
}

// Merge merges already-sorted slices by key. It is a convenience for callers
// that hold their sources in memory.
func Merge[T any, K cmp.Ordered](ctx context.Context, key func(T) K, sources ...[]T) ([]T, error) {
	readers := make([]pipeline.Reader[T], len(sources))
	for i, s := range sources {
		readers[i] = pipeline.NewSliceSource(s)
	}
	mr, err := NewMergeReader(ctx, readers, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mr.Close() }()
	return pipeline.ReadAll[T](ctx, mr)
}
