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
	"sync"
)

// Bucket wraps a function that extracts a result from an item and accumulates
// every result the function reports. Buckets are meant to be handed to
// NewTapReader so several kinds of information can be collected from one pass
// over a stream.
type Bucket[T, R any] struct {
	fn func(T) (R, bool)

	mu       sync.Mutex
	contents []R
}

// NewBucket returns a Bucket around fn. Results with ok=false are not kept.
func NewBucket[T, R any](fn func(T) (R, bool)) *Bucket[T, R] {
	return &Bucket[T, R]{fn: fn}
}

// Observe calls the wrapped function with item and keeps the result, if any.
func (b *Bucket[T, R]) Observe(item T) {
	result, ok := b.fn(item)
	if !ok {
		return
	}
	b.mu.Lock()
	b.contents = append(b.contents, result)
	b.mu.Unlock()
}

// Contents returns a copy of the accumulated results.
func (b *Bucket[T, R]) Contents() []R {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]R, len(b.contents))
	copy(out, b.contents)
	return out
}

// Drain returns the accumulated results and starts a new collection.
func (b *Bucket[T, R]) Drain() []R {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.contents
	b.contents = nil
	return out
}

// Tap observes items as they stream by.
type Tap[T any] interface {
	Observe(item T)
}

// TapReader passes every item of its source through unchanged after handing it
// to each tap. It does not consume the source by itself.
type TapReader[T any] struct {
	src  Reader[T]
	taps []Tap[T]
}

var _ Reader[int] = (*TapReader[int])(nil)

func NewTapReader[T any](src Reader[T], taps ...Tap[T]) *TapReader[T] {
	return &TapReader[T]{src: src, taps: taps}
}

func (t *TapReader[T]) Next(ctx context.Context) (T, error) {
	item, err := t.src.Next(ctx)
	if err != nil {
		return item, err
	}
	for _, tap := range t.taps {
		tap.Observe(item)
	}
	return item, nil
}

func (t *TapReader[T]) Close() error { return t.src.Close() }
