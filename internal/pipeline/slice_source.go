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
	"io"
)

// SliceSource serves items from an in-memory slice.
type SliceSource[T any] struct {
	data   []T
	pos    int
	closed bool
}

var _ Reader[int] = (*SliceSource[int])(nil)

func NewSliceSource[T any](data []T) *SliceSource[T] {
	return &SliceSource[T]{data: data}
}

func (s *SliceSource[T]) Next(_ context.Context) (T, error) {
	var zero T
	if s.closed {
		return zero, ErrReaderClosed
	}
	if s.pos >= len(s.data) {
		return zero, io.EOF
	}
	item := s.data[s.pos]
	s.pos++
	return item, nil
}

func (s *SliceSource[T]) Close() error {
	s.closed = true
	s.data = nil
	return nil
}

// FuncReader adapts a next function and an optional close function to a Reader.
type FuncReader[T any] struct {
	next   func(ctx context.Context) (T, error)
	close  func() error
	closed bool
}

var _ Reader[int] = (*FuncReader[int])(nil)

func NewFuncReader[T any](next func(ctx context.Context) (T, error), closeFn func() error) *FuncReader[T] {
	return &FuncReader[T]{next: next, close: closeFn}
}

func (f *FuncReader[T]) Next(ctx context.Context) (T, error) {
	if f.closed {
		var zero T
		return zero, ErrReaderClosed
	}
	return f.next(ctx)
}

func (f *FuncReader[T]) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.close != nil {
		return f.close()
	}
	return nil
}
