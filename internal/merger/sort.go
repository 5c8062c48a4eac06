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
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// SortReader reads all items from an underlying reader, stable-sorts them by
// key and returns them in order. Items with equal keys keep their original
// relative order.
//
// Memory Impact: HIGH - All items are loaded into memory at once
// Disk I/O: None (pure in-memory operations)
type SortReader[T, K any] struct {
	reader  pipeline.Reader[T]
	key     func(T) K
	compare func(a, b K) int
	closed  bool

	allItems     []T
	currentIndex int
	sorted       bool
}

var _ pipeline.Reader[int] = (*SortReader[int, int])(nil)

// NewSortReader creates a reader that buffers every item of reader and sorts
// them by key. Use it only for inputs that fit comfortably in memory.
func NewSortReader[T any, K cmp.Ordered](reader pipeline.Reader[T], key func(T) K) (*SortReader[T, K], error) {
	return NewSortReaderFunc(reader, key, cmp.Compare[K])
}

// NewSortReaderFunc is NewSortReader with an explicit key comparison.
func NewSortReaderFunc[T, K any](reader pipeline.Reader[T], key func(T) K, compare func(a, b K) int) (*SortReader[T, K], error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if key == nil {
		return nil, ErrKeyRequired
	}
	if compare == nil {
		return nil, errors.New("compare function is required")
	}
	return &SortReader[T, K]{reader: reader, key: key, compare: compare}, nil
}

// loadAndSort reads everything from the underlying reader and sorts it.
func (r *SortReader[T, K]) loadAndSort(ctx context.Context) error {
	if r.sorted {
		return nil
	}
	items, err := pipeline.ReadAll(ctx, r.reader)
	if err != nil {
		return fmt.Errorf("failed to read from underlying reader: %w", err)
	}
	r.allItems = sortStable(items, r.key, r.compare)
	r.sorted = true
	itemsSortedCounter.Add(ctx, int64(len(r.allItems)))
	return nil
}

func (r *SortReader[T, K]) Next(ctx context.Context) (T, error) {
	var zero T
	if r.closed {
		return zero, pipeline.ErrReaderClosed
	}
	if err := r.loadAndSort(ctx); err != nil {
		return zero, err
	}
	if r.currentIndex >= len(r.allItems) {
		return zero, io.EOF
	}
	item := r.allItems[r.currentIndex]
	r.currentIndex++
	return item, nil
}

// Close closes the underlying reader and releases the buffer.
func (r *SortReader[T, K]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.allItems = nil
	return r.reader.Close()
}

// sortStable sorts items by key, computing each key once.
func sortStable[T, K any](items []T, key func(T) K, compare func(a, b K) int) []T {
	type keyed struct {
		key  K
		item T
	}
	tmp := make([]keyed, len(items))
	for i, item := range items {
		tmp[i] = keyed{key: key(item), item: item}
	}
	slices.SortStableFunc(tmp, func(a, b keyed) int {
		return compare(a.key, b.key)
	})
	for i := range tmp {
		items[i] = tmp[i].item
	}
	return items
}
