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
	"errors"
	"io"
	"strings"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// LineStartFunc reports whether line begins a new record.
type LineStartFunc func(line string) bool

// IsIndentedContinuation treats every line that does not start with a tab
// as the start of a record, the layout of indented request logs.
func IsIndentedContinuation(line string) bool {
	return !strings.HasPrefix(line, "\t")
}

// MultiLineReader groups lines into records that span a variable number of
// lines. A record runs from a start line up to, but not including, the next
// start line. Lines before the first start line form a record of their own.
type MultiLineReader struct {
	lines   pipeline.Reader[string]
	isStart LineStartFunc
	pending []string
	done    bool
	closed  bool
}

var _ pipeline.Reader[[]string] = (*MultiLineReader)(nil)

// NewMultiLineReader wraps lines. With a nil isStart every line is its own record.
func NewMultiLineReader(lines pipeline.Reader[string], isStart LineStartFunc) (*MultiLineReader, error) {
	if lines == nil {
		return nil, errors.New("lines reader cannot be nil")
	}
	return &MultiLineReader{lines: lines, isStart: isStart}, nil
}

func (r *MultiLineReader) Next(ctx context.Context) ([]string, error) {
	if r.closed {
		return nil, pipeline.ErrReaderClosed
	}

	for !r.done {
		line, err := r.lines.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}

		if r.isStart == nil {
			return []string{line}, nil
		}
		if r.pending != nil && r.isStart(line) {
			record := r.pending
			r.pending = []string{line}
			return record, nil
		}
		r.pending = append(r.pending, line)
	}

	if r.pending != nil {
		record := r.pending
		r.pending = nil
		return record, nil
	}
	return nil, io.EOF
}

// Close closes the underlying line reader.
func (r *MultiLineReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.lines.Close()
}
