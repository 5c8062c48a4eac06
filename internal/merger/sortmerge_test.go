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
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/pipeline"
)

type thing struct {
	Name string
	Kind string
}

func kindOf(t thing) string { return t.Kind }

func TestSortMergeGroup(t *testing.T) {
	ctx := context.Background()
	groups, err := SortMergeGroup(ctx, sources(
		[]thing{{"pear", "fruit"}, {"iron", "metal"}, {"apple", "fruit"}},
		[]thing{{"oak", "tree"}, {"tin", "metal"}},
		[]thing{{"plum", "fruit"}},
	), kindOf)
	require.NoError(t, err)

	require.Len(t, groups, 3)
	assert.Equal(t, "fruit", groups[0].Key)
	assert.Equal(t, []thing{{"pear", "fruit"}, {"apple", "fruit"}, {"plum", "fruit"}}, groups[0].Items)
	assert.Equal(t, "metal", groups[1].Key)
	assert.Equal(t, []thing{{"iron", "metal"}, {"tin", "metal"}}, groups[1].Items)
	assert.Equal(t, "tree", groups[2].Key)
	assert.Equal(t, []thing{{"oak", "tree"}}, groups[2].Items)
}

func TestSortMergeGroupRequiresKey(t *testing.T) {
	src := &failingReader{err: io.EOF}
	_, err := SortMergeGroup[int, int](context.Background(), []pipeline.Reader[int]{src}, nil)
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.True(t, src.closed)
}

func TestSortMergeGroupClosesSources(t *testing.T) {
	a := &failingReader{items: []int{3, 1}, err: io.EOF}
	b := &failingReader{items: []int{2}, err: io.EOF}
	groups, err := SortMergeGroup(context.Background(), []pipeline.Reader[int]{a, b}, identity)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, Flatten(groups))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestSortMergeGroupIndependentOfPartitioning(t *testing.T) {
	ctx := context.Background()
	all := []int{5, 3, 9, 3, 1, 5, 5, 12, 0, 9}
	mod := func(v int) int { return v % 4 }

	keysAndSizes := func(groups []Group[int, int]) map[int]int {
		out := map[int]int{}
		for _, g := range groups {
			out[g.Key] = len(g.Items)
		}
		return out
	}

	one, err := SortMergeGroup(ctx, sources(all), mod)
	require.NoError(t, err)
	three, err := SortMergeGroup(ctx, sources(all[:2], all[2:7], all[7:]), mod)
	require.NoError(t, err)
	many, err := SortMergeGroup(ctx, sources([]int{5}, []int{3, 9}, []int{}, []int{3, 1, 5}, []int{5, 12, 0, 9}), mod)
	require.NoError(t, err)

	assert.Equal(t, keysAndSizes(one), keysAndSizes(three))
	assert.Equal(t, keysAndSizes(one), keysAndSizes(many))

	for i := 1; i < len(three); i++ {
		assert.Less(t, three[i-1].Key, three[i].Key)
	}
	assert.ElementsMatch(t, all, Flatten(three))
}

func TestRegroupingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	groups, err := SortMergeGroup(ctx, sources(
		[]thing{{"b", "y"}, {"a", "x"}},
		[]thing{{"c", "x"}, {"d", "z"}},
	), kindOf)
	require.NoError(t, err)

	gr, err := NewGroupReader[thing](pipeline.NewSliceSource(Flatten(groups)), kindOf)
	require.NoError(t, err)
	regrouped, err := pipeline.ReadAll[Group[string, thing]](ctx, gr)
	require.NoError(t, err)

	assert.Equal(t, groups, regrouped)
}

func TestGroupReaderEmpty(t *testing.T) {
	gr, err := NewGroupReader[int](pipeline.NewSliceSource[int](nil), identity)
	require.NoError(t, err)

	_, err = gr.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	_, err = gr.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestGroupReaderRequiresKey(t *testing.T) {
	_, err := NewGroupReader[int, int](pipeline.NewSliceSource([]int{1}), nil)
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func TestMultiGroupsAndFirstMatch(t *testing.T) {
	groups, err := MultiGroupsOf(context.Background(), sources(
		[]thing{{"pear", "fruit"}, {"iron", "metal"}},
		[]thing{{"plum", "fruit"}, {"oak", "tree"}},
	), kindOf)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, "fruit", groups[0].Key)

	got, ok := FirstMatch(groups[0], func(v thing) bool { return v.Name == "plum" })
	assert.True(t, ok)
	assert.Equal(t, thing{"plum", "fruit"}, got)

	_, ok = FirstMatch(groups[0], func(v thing) bool { return v.Name == "iron" })
	assert.False(t, ok)
}

func TestSortReaderIsStable(t *testing.T) {
	ctx := context.Background()
	in := []thing{{"1", "b"}, {"2", "a"}, {"3", "b"}, {"4", "a"}}
	sr, err := NewSortReader[thing](pipeline.NewSliceSource(in), kindOf)
	require.NoError(t, err)
	defer func() { _ = sr.Close() }()

	got, err := pipeline.ReadAll[thing](ctx, sr)
	require.NoError(t, err)
	assert.Equal(t, []thing{{"2", "a"}, {"4", "a"}, {"1", "b"}, {"3", "b"}}, got)
}

func TestSortReaderRejectsMissingArgs(t *testing.T) {
	_, err := NewSortReader[int, int](nil, identity)
	assert.Error(t, err)
	_, err = NewSortReader[int, int](pipeline.NewSliceSource([]int{1}), nil)
	assert.ErrorIs(t, err, ErrKeyRequired)
}
