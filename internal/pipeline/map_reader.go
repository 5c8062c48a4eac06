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
	"io"
)

// MapReader applies fn to every item; returning ok=false drops the item.
type MapReader[In, Out any] struct {
	in Reader[In]
	fn func(In) (Out, bool, error)
}

var _ Reader[int] = (*MapReader[string, int])(nil)

// Map returns a reader yielding fn(item) for every upstream item.
func Map[In, Out any](in Reader[In], fn func(In) (Out, error)) *MapReader[In, Out] {
	return &MapReader[In, Out]{in: in, fn: func(v In) (Out, bool, error) {
		out, err := fn(v)
		return out, true, err
	}}
}

// FilterMap maps and drops in one pass.
func FilterMap[In, Out any](in Reader[In], fn func(In) (Out, bool, error)) *MapReader[In, Out] {
	return &MapReader[In, Out]{in: in, fn: fn}
}

// Filter keeps items where pred returns true.
func Filter[T any](in Reader[T], pred func(T) bool) *MapReader[T, T] {
	return FilterMap(in, func(v T) (T, bool, error) { return v, pred(v), nil })
}

func (m *MapReader[In, Out]) Next(ctx context.Context) (Out, error) {
	var zero Out
	for {
		item, err := m.in.Next(ctx)
		if err != nil {
			return zero, err
		}
		out, ok, err := m.fn(item)
		if err != nil {
			return zero, err
		}
		if ok {
			return out, nil
		}
	}
}

func (m *MapReader[In, Out]) Close() error { return m.in.Close() }

// Nth yields the nth field of every sequence from in.
func Nth[T any](in Reader[[]T], n int) *MapReader[[]T, T] {
	return FilterMap(in, func(v []T) (T, bool, error) {
		if n < 0 || n >= len(v) {
			var zero T
			return zero, false, errors.New("field index out of range")
		}
		return v[n], true, nil
	})
}

// Take returns at most n items from in. It does not close in.
func Take[T any](ctx context.Context, in Reader[T], n int) ([]T, error) {
	out := make([]T, 0, n)
	for len(out) < n {
		item, err := in.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
