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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/pipeline"
)

func TestCSVReader_Next(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		dialect  Dialect
		expected [][]string
	}{
		{
			name:     "simple rows",
			input:    "name,age\nAlice,30\nBob,25\n",
			dialect:  DefaultDialect(),
			expected: [][]string{{"name", "age"}, {"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:     "no trailing newline",
			input:    "a,b\nc,d",
			dialect:  DefaultDialect(),
			expected: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:     "multi-line quoted field",
			input:    "id,note\n1,\"first line\nsecond line\"\n2,plain\n",
			dialect:  DefaultDialect(),
			expected: [][]string{{"id", "note"}, {"1", "first line\nsecond line"}, {"2", "plain"}},
		},
		{
			name:     "pipe delimiter",
			input:    "a|b|c\n1|2|3\n",
			dialect:  Dialect{Comma: '|', FieldsPerRecord: -1},
			expected: [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:     "variable field count",
			input:    "a,b,c\n1\n",
			dialect:  DefaultDialect(),
			expected: [][]string{{"a", "b", "c"}, {"1"}},
		},
		{
			name:     "empty input",
			input:    "",
			dialect:  DefaultDialect(),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCSVReader(strings.NewReader(tt.input), tt.dialect)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			got, err := pipeline.ReadAll[[]string](ctx, r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, int64(len(tt.expected)), r.TotalRowsReturned())

			_, err = r.Next(ctx)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestCSVReader_InvalidUTF8(t *testing.T) {
	ctx := context.Background()
	r, err := NewCSVReader(strings.NewReader("a,b\n\xff,c\n"), DefaultDialect())
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, row)

	_, err = r.Next(ctx)
	require.ErrorIs(t, err, ErrInvalidEncoding)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
}

func TestCSVReader_InvalidDialect(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("a"), Dialect{Comma: '"'})
	assert.Error(t, err)

	_, err = NewCSVReader(nil, DefaultDialect())
	assert.Error(t, err)
}

func TestCSVReader_Closed(t *testing.T) {
	r, err := NewCSVReader(strings.NewReader("a\n"), DefaultDialect())
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrReaderClosed)
}

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func TestCSVReader_ClosesUnderlying(t *testing.T) {
	src := &closeTracker{Reader: strings.NewReader("a,b\n")}
	r, err := NewCSVReader(src, DefaultDialect())
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, src.closed)
}
