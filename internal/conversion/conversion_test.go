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

package conversion

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/logctx"
)

func TestNumberAsInt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		in   string
		want int64
	}{
		{"2sdfgsd", 2},
		{"42", 42},
		{"007 agent", 7},
		{"12.5", 12},
	}
	for _, tt := range tests {
		got, err := NumberAsInt(ctx, tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNumberAsInt_LogsAndReturnsError(t *testing.T) {
	var buf bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	for _, in := range []string{"sdfgsd", "", "-5", "99999999999999999999"} {
		buf.Reset()
		_, err := NumberAsInt(ctx, in)
		require.Error(t, err, in)
		assert.Contains(t, buf.String(), "Failed to convert value to int", in)
	}

	_, err := NumberAsInt(ctx, "x1")
	assert.ErrorIs(t, err, ErrNotNumber)
}

func TestApplyConversions(t *testing.T) {
	conversions := []Conversion[[]string, string]{
		{Key: "first", Convert: Field(1)},
		{Key: "last", Convert: Field(0)},
	}
	entity := []string{"bruce", "lara"}

	assert.Equal(t, []string{"lara", "bruce"}, ApplyConversions(conversions, entity))
	assert.Equal(t, []KeyValue[string]{
		{Key: "first", Value: "lara"},
		{Key: "last", Value: "bruce"},
	}, ApplyConversionMap(conversions, entity))
}

func TestJoinStrippedValues(t *testing.T) {
	entity := []any{" A", "B ", 2, "D", "   "}
	getters := []func([]any) any{
		func(e []any) any { return e[0] },
		func(e []any) any { return e[1] },
		func(e []any) any { return e[2] },
		func(e []any) any { return e[3] },
		func(e []any) any { return e[4] },
	}
	assert.Equal(t, "A+B+2+D", JoinStrippedValues("+", getters, entity))
	assert.Equal(t, "", JoinStrippedValues[[]any]("+", nil, entity))
}

func TestField(t *testing.T) {
	assert.Equal(t, "b", Field(1)([]string{"a", "b"}))
	assert.Equal(t, "", Field(5)([]string{"a"}))
}
