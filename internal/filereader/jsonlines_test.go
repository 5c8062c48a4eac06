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

type event struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONLinesReader_Next(t *testing.T) {
	ctx := context.Background()
	input := `{"name":"a","count":1}

  {"name":"ñandú","count":2}
{"name":"c","count":3}`

	r, err := NewJSONLinesReader[event](strings.NewReader(input))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	got, err := pipeline.ReadAll[event](ctx, r)
	require.NoError(t, err)
	assert.Equal(t, []event{{"a", 1}, {"ñandú", 2}, {"c", 3}}, got)
	assert.Equal(t, int64(3), r.TotalRowsReturned())
}

func TestJSONLinesReader_Maps(t *testing.T) {
	ctx := context.Background()
	r, err := NewJSONLinesReader[map[string]any](strings.NewReader(`{"k":"v"}` + "\n"))
	require.NoError(t, err)

	row, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", row["k"])

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLinesReader_ParseError(t *testing.T) {
	ctx := context.Background()
	r, err := NewJSONLinesReader[event](strings.NewReader("{\"name\":\"a\"}\n{broken\n"))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.Next(ctx)
	require.NoError(t, err)

	_, err = r.Next(ctx)
	require.Error(t, err)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Contains(t, err.Error(), "JSON parse error")
}

func TestJSONLinesReader_InvalidUTF8(t *testing.T) {
	r, err := NewJSONLinesReader[map[string]any](strings.NewReader("{\"k\":\"\xfe\"}\n"))
	require.NoError(t, err)

	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
