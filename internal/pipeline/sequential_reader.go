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
)

// SequentialReader reads from multiple readers sequentially in the order provided.
// It reads all items from the first reader, then all items from the second reader, etc.
type SequentialReader[T any] struct {
	readers      []Reader[T]
	currentIndex int
	closed       bool
	count        int64
}

var _ Reader[int] = (*SequentialReader[int])(nil)

// NewSequentialReader creates a reader over the concatenation of readers.
// Readers will be closed when the SequentialReader is closed.
func NewSequentialReader[T any](readers []Reader[T]) (*SequentialReader[T], error) {
	for i, reader := range readers {
		if reader == nil {
			return nil, fmt.Errorf("reader at index %d is nil", i)
		}
	}
	return &SequentialReader[T]{readers: readers}, nil
}

// Next returns the next item from the current reader, advancing to the next
// reader when the current one is exhausted.
func (sr *SequentialReader[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if sr.closed {
		return zero, ErrReaderClosed
	}

	for sr.currentIndex < len(sr.readers) {
		item, err := sr.readers[sr.currentIndex].Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				sr.currentIndex++
				continue
			}
			return zero, fmt.Errorf("error reading from reader %d: %w", sr.currentIndex, err)
		}
		sr.count++
		return item, nil
	}

	return zero, io.EOF
}

// Close closes all underlying readers.
func (sr *SequentialReader[T]) Close() error {
	if sr.closed {
		return nil
	}
	sr.closed = true
	return CloseAll(sr.readers)
}

// CurrentReaderIndex returns the index of the reader currently being read from.
// Returns -1 if all readers are exhausted or the reader is closed.
func (sr *SequentialReader[T]) CurrentReaderIndex() int {
	if sr.closed || sr.currentIndex >= len(sr.readers) {
		return -1
	}
	return sr.currentIndex
}

// TotalRowsReturned returns the number of items returned across all readers.
func (sr *SequentialReader[T]) TotalRowsReturned() int64 {
	return sr.count
}

// ChainReader concatenates readers that are produced lazily by src, so each
// reader is opened only when the previous one is exhausted. Exhausted readers
// are closed immediately.
type ChainReader[T any] struct {
	src    Reader[Reader[T]]
	cur    Reader[T]
	closed bool
	count  int64
}

var _ Reader[int] = (*ChainReader[int])(nil)

// NewChainReader returns a ChainReader over the readers yielded by src.
func NewChainReader[T any](src Reader[Reader[T]]) *ChainReader[T] {
	return &ChainReader[T]{src: src}
}

func (c *ChainReader[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if c.closed {
		return zero, ErrReaderClosed
	}

	for {
		if c.cur == nil {
			r, err := c.src.Next(ctx)
			if err != nil {
				return zero, err
			}
			if r == nil {
				continue
			}
			c.cur = r
		}

		item, err := c.cur.Next(ctx)
		if errors.Is(err, io.EOF) {
			cerr := c.cur.Close()
			c.cur = nil
			if cerr != nil {
				return zero, cerr
			}
			continue
		}
		if err != nil {
			return zero, err
		}
		c.count++
		return item, nil
	}
}

// Close closes the current reader and src.
func (c *ChainReader[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	if c.cur != nil {
		errs = append(errs, c.cur.Close())
		c.cur = nil
	}
	errs = append(errs, c.src.Close())
	return errors.Join(errs...)
}

// TotalRowsReturned returns the number of items returned across all readers.
func (c *ChainReader[T]) TotalRowsReturned() int64 {
	return c.count
}
