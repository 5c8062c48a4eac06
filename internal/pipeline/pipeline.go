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

// Package pipeline provides pull-based lazy sequences and the small set of
// composable readers built on them. A Reader is owned by a single consumer;
// closing a composite reader closes the readers it wraps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrReaderClosed is returned by Next after Close has been called.
var ErrReaderClosed = errors.New("reader is closed")

// Reader is a pull-based iterator over items of type T.
// Next returns the zero value and io.EOF when the sequence ends.
type Reader[T any] interface {
	Next(ctx context.Context) (T, error)
	Close() error
}

// ReadAll drains r into a slice. It does not close r.
func ReadAll[T any](ctx context.Context, r Reader[T]) ([]T, error) {
	var out []T
	for {
		item, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
}

// ForEach calls fn for every item of r until r is exhausted or fn fails.
func ForEach[T any](ctx context.Context, r Reader[T], fn func(T) error) error {
	for {
		item, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// CloseAll closes every reader and joins the errors.
func CloseAll[T any](readers []Reader[T]) error {
	var errs []error
	for i, r := range readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reader %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
