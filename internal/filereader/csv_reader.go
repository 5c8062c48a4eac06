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

package filereader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// CSVReader streams delimited records. Quoted fields may span lines.
type CSVReader struct {
	reader    *csv.Reader
	closer    io.Closer
	closed    bool
	done      bool
	totalRows int64
}

var _ pipeline.Reader[[]string] = (*CSVReader)(nil)

// NewCSVReader creates a CSVReader over r using the given dialect.
// If r is an io.Closer the reader takes ownership of it and closes it on Close.
func NewCSVReader(r io.Reader, dialect Dialect) (*CSVReader, error) {
	if r == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if err := dialect.Validate(); err != nil {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	cr := dialect.Reader(r)
	cr.ReuseRecord = false

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	return &CSVReader{reader: cr, closer: closer}, nil
}

// Next returns the next record.
func (r *CSVReader) Next(ctx context.Context) ([]string, error) {
	if r.closed {
		return nil, pipeline.ErrReaderClosed
	}
	if r.done {
		return nil, io.EOF
	}

	record, err := r.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.done = true
			return nil, io.EOF
		}
		rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "CSVReader"),
			attribute.String("reason", "parse_error"),
		))
		return nil, fmt.Errorf("CSV read error: %w", err)
	}

	line, _ := r.reader.FieldPos(0)
	if err := checkUTF8(ctx, line, record...); err != nil {
		return nil, err
	}

	r.totalRows++
	rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "CSVReader"),
	))
	return record, nil
}

// Close releases the underlying stream. It is safe to call more than once.
func (r *CSVReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// TotalRowsReturned returns the number of records returned so far.
func (r *CSVReader) TotalRowsReturned() int64 {
	return r.totalRows
}
