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

// Package merger merges individually sorted readers into one globally sorted
// stream and groups the result by key.
//
// # Merging
//
// NewMergeReader performs a k-way merge with a binary heap holding one entry
// per non-exhausted source. Entries are ordered by (key, source index), so
// items with equal keys come out in source submission order.
//
//	merged, err := merger.NewMergeReader(ctx, sources, func(r []string) string { return r[1] })
//
// Every source must already be sorted by the same key. Use SortMergeGroup when
// the sources are unsorted and small enough to sort in memory: it materializes
// and sorts each source before merging, so its memory use is bounded by the
// largest source, not by any batch size.
package merger

import "errors"

// ErrKeyRequired is returned when a merge, sort or group operation is
// constructed without a key function.
var ErrKeyRequired = errors.New("key function is required")
