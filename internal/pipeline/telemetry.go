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
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	itemsBatchedCounter otelmetric.Int64Counter
	batchesOutCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/karld/internal/pipeline")

	var err error
	itemsBatchedCounter, err = meter.Int64Counter(
		"karld.pipeline.items.batched",
		otelmetric.WithDescription("Number of items collected into batches"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create items.batched counter: %w", err))
	}

	batchesOutCounter, err = meter.Int64Counter(
		"karld.pipeline.batches.out",
		otelmetric.WithDescription("Number of batches handed to downstream consumers"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create batches.out counter: %w", err))
	}
}
