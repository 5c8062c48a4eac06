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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/pipeline"
)

func TestLineReader(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"terminated", "a\nb\n", []string{"a\n", "b\n"}},
		{"unterminated tail", "a\nb", []string{"a\n", "b"}},
		{"crlf kept", "a\r\nb\r\n", []string{"a\r\n", "b\r\n"}},
		{"blank lines kept", "\n\nx\n", []string{"\n", "\n", "x\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewLineReader(strings.NewReader(tt.input))
			got, err := pipeline.ReadAll[string](ctx, r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			require.NoError(t, r.Close())
		})
	}
}

func TestLineReader_InvalidUTF8(t *testing.T) {
	r := NewLineReader(strings.NewReader("ok\nbad\xc3\x28\n"))
	ctx := context.Background()

	_, err := r.Next(ctx)
	require.NoError(t, err)
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestMultiLineReader(t *testing.T) {
	ctx := context.Background()
	input := "GET /a\n\tdetail 1\n\tdetail 2\nGET /b\nGET /c\n\tdetail 3\n"

	r, err := NewMultiLineReader(NewLineReader(strings.NewReader(input)), IsIndentedContinuation)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	got, err := pipeline.ReadAll[[]string](ctx, r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"GET /a\n", "\tdetail 1\n", "\tdetail 2\n"},
		{"GET /b\n"},
		{"GET /c\n", "\tdetail 3\n"},
	}, got)
}

func TestMultiLineReader_LeadingContinuation(t *testing.T) {
	ctx := context.Background()
	r, err := NewMultiLineReader(NewLineReader(strings.NewReader("\torphan\nstart\n")), IsIndentedContinuation)
	require.NoError(t, err)

	got, err := pipeline.ReadAll[[]string](ctx, r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"\torphan\n"}, {"start\n"}}, got)
}

func TestMultiLineReader_NoPredicate(t *testing.T) {
	ctx := context.Background()
	r, err := NewMultiLineReader(NewLineReader(strings.NewReader("a\n\tb\n")), nil)
	require.NoError(t, err)

	got, err := pipeline.ReadAll[[]string](ctx, r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a\n"}, {"\tb\n"}}, got)
}

func TestMultiLineReader_Empty(t *testing.T) {
	r, err := NewMultiLineReader(NewLineReader(strings.NewReader("")), IsIndentedContinuation)
	require.NoError(t, err)

	got, err := pipeline.ReadAll[[]string](context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewMultiLineReader(nil, nil)
	assert.Error(t, err)
}
