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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// LineReader streams raw lines. Each line keeps its terminator; the final
// line is returned even when the input does not end with a newline.
type LineReader struct {
	reader    *bufio.Reader
	closer    io.Closer
	lineNo    int
	closed    bool
	done      bool
	totalRows int64
}

var _ pipeline.Reader[string] = (*LineReader)(nil)

// NewLineReader creates a LineReader over r, taking ownership of r if it is an io.Closer.
func NewLineReader(r io.Reader) *LineReader {
	lr := &LineReader{reader: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		lr.closer = c
	}
	return lr
}

func (r *LineReader) Next(ctx context.Context) (string, error) {
	if r.closed {
		return "", pipeline.ErrReaderClosed
	}
	if r.done {
		return "", io.EOF
	}

	line, err := r.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read error at line %d: %w", r.lineNo+1, err)
	}
	if errors.Is(err, io.EOF) {
		r.done = true
		if line == "" {
			return "", io.EOF
		}
	}

	r.lineNo++
	if err := checkUTF8(ctx, r.lineNo, line); err != nil {
		return "", err
	}
	r.totalRows++
	return line, nil
}

func (r *LineReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// TotalRowsReturned returns the number of lines returned so far.
func (r *LineReader) TotalRowsReturned() int64 {
	return r.totalRows
}
