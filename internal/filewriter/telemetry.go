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

package filewriter

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	recordsWrittenCounter otelmetric.Int64Counter
	bytesWrittenCounter   otelmetric.Int64Counter
	shardsWrittenCounter  otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/karld/internal/filewriter")

	var err error
	recordsWrittenCounter, err = meter.Int64Counter(
		"karld.writer.records",
		otelmetric.WithDescription("Number of records serialized to output files"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create records counter: %w", err))
	}

	bytesWrittenCounter, err = meter.Int64Counter(
		"karld.writer.bytes",
		otelmetric.WithDescription("Number of bytes written to output files"),
		otelmetric.WithUnit("By"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create bytes counter: %w", err))
	}

	shardsWrittenCounter, err = meter.Int64Counter(
		"karld.writer.shards",
		otelmetric.WithDescription("Number of shard files completed by Split"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create shards counter: %w", err))
	}
}
