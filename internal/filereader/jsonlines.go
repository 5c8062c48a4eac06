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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/karld/internal/constants"
	"github.com/cardinalhq/karld/internal/pipeline"
)

// JSONLinesReader decodes one JSON document per line into values of type T.
// Blank lines are skipped.
type JSONLinesReader[T any] struct {
	scanner   *bufio.Scanner
	rowIndex  int
	closed    bool
	done      bool
	totalRows int64
	closer    io.Closer
}

// NewJSONLinesReader creates a new JSONLinesReader over r.
// If r is an io.Closer the reader takes ownership of it and closes it on Close.
func NewJSONLinesReader[T any](r io.Reader) (*JSONLinesReader[T], error) {
	if r == nil {
		return nil, errors.New("reader cannot be nil")
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxLineSizeBytes)

	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	return &JSONLinesReader[T]{scanner: scanner, closer: closer}, nil
}

func (r *JSONLinesReader[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if r.closed {
		return zero, pipeline.ErrReaderClosed
	}
	if r.done {
		return zero, io.EOF
	}

	for r.scanner.Scan() {
		r.rowIndex++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := checkUTF8(ctx, r.rowIndex, string(line)); err != nil {
			return zero, err
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
				attribute.String("reader", "JSONLinesReader"),
				attribute.String("reason", "parse_error"),
			))
			return zero, &LineError{Line: r.rowIndex, Err: fmt.Errorf("JSON parse error: %w", err)}
		}

		r.totalRows++
		rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "JSONLinesReader"),
		))
		return v, nil
	}

	if err := r.scanner.Err(); err != nil {
		return zero, fmt.Errorf("scanner error reading at line %d: %w", r.rowIndex+1, err)
	}
	r.done = true
	return zero, io.EOF
}

// Close closes the reader and the underlying stream.
func (r *JSONLinesReader[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.scanner = nil
	return err
}

// TotalRowsReturned returns the number of documents returned so far.
func (r *JSONLinesReader[T]) TotalRowsReturned() int64 {
	return r.totalRows
}
