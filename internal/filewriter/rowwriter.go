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

// Package filewriter persists record streams to flat files and splits large
// streams into numbered shard files.
//
// Serialization is a strategy: a RowWriterFactory wraps a sink in a
// RowWriter, and the writing functions here decide batching, buffering,
// shard boundaries and file lifecycle. Three strategies are provided: raw
// line concatenation, delimited rows and newline-delimited JSON.
package filewriter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"

	"github.com/cardinalhq/karld/internal/filereader"
)

// ErrInvalidBatchSize is returned for non-positive shard or buffer sizes.
var ErrInvalidBatchSize = errors.New("filewriter: batch size must be positive")

// RowWriter serializes records of type T to a sink.
type RowWriter[T any] interface {
	// WriteRow serializes one record.
	WriteRow(row T) error
	// Flush pushes any records buffered by the writer to its sink.
	Flush() error
}

// RowWriterFactory creates a RowWriter bound to a sink.
type RowWriterFactory[T any] interface {
	NewRowWriter(w io.Writer) RowWriter[T]
}

// RowWriterFactoryFunc adapts a function to a RowWriterFactory.
type RowWriterFactoryFunc[T any] func(w io.Writer) RowWriter[T]

func (f RowWriterFactoryFunc[T]) NewRowWriter(w io.Writer) RowWriter[T] { return f(w) }

// LineWriterFactory writes each string unchanged. Lines are expected to carry
// their own terminators.
type LineWriterFactory struct{}

func (LineWriterFactory) NewRowWriter(w io.Writer) RowWriter[string] {
	return lineWriter{w: w}
}

type lineWriter struct {
	w io.Writer
}

func (l lineWriter) WriteRow(line string) error {
	_, err := io.WriteString(l.w, line)
	return err
}

func (lineWriter) Flush() error { return nil }

// CSVWriterFactory writes delimited rows using Dialect.
type CSVWriterFactory struct {
	Dialect filereader.Dialect
}

func (f CSVWriterFactory) NewRowWriter(w io.Writer) RowWriter[[]string] {
	if f.Dialect.QuoteAll {
		return quoteAllWriter{w: w, dialect: f.Dialect}
	}
	cw := csv.NewWriter(w)
	if f.Dialect.Comma != 0 {
		cw.Comma = f.Dialect.Comma
	}
	cw.UseCRLF = f.Dialect.UseCRLF
	return &csvWriter{cw: cw}
}

type csvWriter struct {
	cw *csv.Writer
}

func (c *csvWriter) WriteRow(row []string) error {
	return c.cw.Write(row)
}

func (c *csvWriter) Flush() error {
	c.cw.Flush()
	return c.cw.Error()
}

type quoteAllWriter struct {
	w       io.Writer
	dialect filereader.Dialect
}

func (q quoteAllWriter) WriteRow(row []string) error {
	return q.dialect.WriteRecord(q.w, row)
}

func (quoteAllWriter) Flush() error { return nil }

// JSONLinesWriterFactory writes one JSON document per line.
type JSONLinesWriterFactory[T any] struct{}

func (JSONLinesWriterFactory[T]) NewRowWriter(w io.Writer) RowWriter[T] {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return jsonLinesWriter[T]{enc: enc}
}

type jsonLinesWriter[T any] struct {
	enc *json.Encoder
}

func (j jsonLinesWriter[T]) WriteRow(row T) error {
	return j.enc.Encode(row)
}

func (jsonLinesWriter[T]) Flush() error { return nil }
