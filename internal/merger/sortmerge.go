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
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/pipeline"
)

// SortMergeGroup sorts every source by key in memory, merges the sorted
// sources and groups the merged stream into runs of equal keys. The groups are
// returned in ascending key order. All sources are closed before returning.
//
// The set of groups does not depend on how items are spread across sources.
// Inside a group, items appear in source order and, within one source, in
// their original relative order.
func SortMergeGroup[T any, K cmp.Ordered](ctx context.Context, sources []pipeline.Reader[T], key func(T) K) ([]Group[K, T], error) {
	return SortMergeGroupFunc(ctx, sources, key, cmp.Compare[K])
}

// SortMergeGroupFunc is SortMergeGroup with an explicit key comparison.
func SortMergeGroupFunc[T, K any](ctx context.Context, sources []pipeline.Reader[T], key func(T) K, compare func(a, b K) int) ([]Group[K, T], error) {
	if key == nil {
		_ = pipeline.CloseAll(sources)
		return nil, ErrKeyRequired
	}

	sorted, err := sortSources(ctx, sources, key, compare)
	closeErr := pipeline.CloseAll(sources)
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	readers := make([]pipeline.Reader[T], len(sorted))
	for i, items := range sorted {
		readers[i] = pipeline.NewSliceSource(items)
	}

	merged, err := NewMergeReaderFunc(ctx, readers, key, compare)
	if err != nil {
		return nil, err
	}
	grouped, err := NewGroupReaderFunc[T, K](merged, key, compare)
	if err != nil {
		_ = merged.Close()
		return nil, err
	}
	defer func() { _ = grouped.Close() }()

	groups, err := pipeline.ReadAll[Group[K, T]](ctx, grouped)
	if err != nil {
		return nil, err
	}

	groupsCounter.Add(ctx, int64(len(groups)))
	logctx.FromContext(ctx).Debug("Sort-merge-group complete",
		slog.Int("sources", len(sources)),
		slog.Int("groups", len(groups)))
	return groups, nil
}

// sortSources materializes and sorts every source. Sources are independent
// readers, so they are drained concurrently; each one is touched by exactly one
// goroutine.
func sortSources[T, K any](ctx context.Context, sources []pipeline.Reader[T], key func(T) K, compare func(a, b K) int) ([][]T, error) {
	for i, source := range sources {
		if source == nil {
			return nil, fmt.Errorf("source %d is nil", i)
		}
	}

	sorted := make([][]T, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, source := range sources {
		g.Go(func() error {
			items, err := pipeline.ReadAll(gctx, source)
			if err != nil {
				return fmt.Errorf("failed to read source %d: %w", i, err)
			}
			sorted[i] = sortStable(items, key, compare)
			itemsSortedCounter.Add(gctx, int64(len(items)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sorted, nil
}

// MultiGroupsOf runs SortMergeGroup and keeps only the groups with more than
// one member.
func MultiGroupsOf[T any, K cmp.Ordered](ctx context.Context, sources []pipeline.Reader[T], key func(T) K) ([]Group[K, T], error) {
	groups, err := SortMergeGroup(ctx, sources, key)
	if err != nil {
		return nil, err
	}
	return MultiGroups(groups), nil
}
