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

package runner

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/cardinalhq/karld/internal/runner")

	tasksSubmittedCounter otelmetric.Int64Counter
	tasksCompletedCounter otelmetric.Int64Counter
	batchesDistributed    otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/karld/internal/runner")

	var err error
	tasksSubmittedCounter, err = meter.Int64Counter(
		"karld.runner.tasks.submitted",
		otelmetric.WithDescription("Number of tasks submitted to a worker pool"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create tasks.submitted counter: %w", err))
	}

	tasksCompletedCounter, err = meter.Int64Counter(
		"karld.runner.tasks.completed",
		otelmetric.WithDescription("Number of pool tasks finished, by status"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create tasks.completed counter: %w", err))
	}

	batchesDistributed, err = meter.Int64Counter(
		"karld.runner.batches.distributed",
		otelmetric.WithDescription("Number of record batches handed to workers by Distribute"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create batches.distributed counter: %w", err))
	}
}
