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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	itemsMergedCounter      otelmetric.Int64Counter
	itemsSortedCounter      otelmetric.Int64Counter
	sourcesExhaustedCounter otelmetric.Int64Counter
	groupsCounter           otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/karld/internal/merger")

	var err error
	itemsMergedCounter, err = meter.Int64Counter(
		"karld.merger.items.merged",
		otelmetric.WithDescription("Number of items emitted by merge readers"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create items.merged counter: %w", err))
	}

	itemsSortedCounter, err = meter.Int64Counter(
		"karld.merger.items.sorted",
		otelmetric.WithDescription("Number of items sorted in memory before merging"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create items.sorted counter: %w", err))
	}

	sourcesExhaustedCounter, err = meter.Int64Counter(
		"karld.merger.sources.exhausted",
		otelmetric.WithDescription("Number of merge sources that ran out of items"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sources.exhausted counter: %w", err))
	}

	groupsCounter, err = meter.Int64Counter(
		"karld.merger.groups",
		otelmetric.WithDescription("Number of groups produced by sort-merge-group"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create groups counter: %w", err))
	}
}
