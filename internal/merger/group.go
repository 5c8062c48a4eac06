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
	"io"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// Group is a maximal run of consecutive items sharing the same key.
type Group[K, T any] struct {
	Key   K
	Items []T
}

// GroupReader groups consecutive equal-key items of a sorted reader. Each
// group is fully buffered because its end is only known once the first item
// of the next group has been read.
type GroupReader[T, K any] struct {
	src        pipeline.Reader[T]
	key        func(T) K
	compare    func(a, b K) int
	pending    T
	pendingKey K
	hasPending bool
	done       bool
	closed     bool
}

var _ pipeline.Reader[Group[int, int]] = (*GroupReader[int, int])(nil)

// NewGroupReader groups src by key using the natural ordering of K.
func NewGroupReader[T any, K cmp.Ordered](src pipeline.Reader[T], key func(T) K) (*GroupReader[T, K], error) {
	return NewGroupReaderFunc(src, key, cmp.Compare[K])
}

// NewGroupReaderFunc groups src by key; two keys are equal when compare returns 0.
func NewGroupReaderFunc[T, K any](src pipeline.Reader[T], key func(T) K, compare func(a, b K) int) (*GroupReader[T, K], error) {
	if key == nil {
		return nil, ErrKeyRequired
	}
	if src == nil {
		return nil, errors.New("source reader is required")
	}
	if compare == nil {
		return nil, errors.New("compare function is required")
	}
	return &GroupReader[T, K]{src: src, key: key, compare: compare}, nil
}

func (g *GroupReader[T, K]) Next(ctx context.Context) (Group[K, T], error) {
	var zero Group[K, T]
	if g.closed {
		return zero, pipeline.ErrReaderClosed
	}
	if g.done {
		return zero, io.EOF
	}

	if !g.hasPending {
		item, err := g.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			g.done = true
			return zero, io.EOF
		}
		if err != nil {
			return zero, err
		}
		g.pending, g.pendingKey, g.hasPending = item, g.key(item), true
	}

	group := Group[K, T]{Key: g.pendingKey, Items: []T{g.pending}}
	g.hasPending = false

	for {
		item, err := g.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			g.done = true
			return group, nil
		}
		if err != nil {
			return zero, err
		}
		k := g.key(item)
		if g.compare(k, group.Key) != 0 {
			g.pending, g.pendingKey, g.hasPending = item, k, true
			return group, nil
		}
		group.Items = append(group.Items, item)
	}
}

func (g *GroupReader[T, K]) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	return g.src.Close()
}

// MultiGroups returns the groups that have more than one member.
func MultiGroups[K, T any](groups []Group[K, T]) []Group[K, T] {
	var out []Group[K, T]
	for _, g := range groups {
		if len(g.Items) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// FirstMatch returns the first member of the group for which match is true.
func FirstMatch[K, T any](group Group[K, T], match func(T) bool) (T, bool) {
	for _, item := range group.Items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Flatten concatenates the members of groups in order.
func Flatten[K, T any](groups []Group[K, T]) []T {
	var out []T
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}
