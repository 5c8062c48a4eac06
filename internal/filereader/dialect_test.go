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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_FormatRecord(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		record   []string
		expected string
	}{
		{"minimal quoting", DefaultDialect(), []string{"a", "b,c", `d"e`}, "a,\"b,c\",\"d\"\"e\"\n"},
		{"quote all", Dialect{QuoteAll: true}, []string{"a", `b"`}, "\"a\",\"b\"\"\"\n"},
		{"tab crlf", Dialect{Comma: '\t', UseCRLF: true}, []string{"x", "y"}, "x\ty\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dialect.FormatRecord(tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDialect_RoundTrip(t *testing.T) {
	record := []string{"plain", "with,comma", "multi\nline", `quo"te`, "ünïcödé"}
	for _, d := range []Dialect{DefaultDialect(), {Comma: ';', QuoteAll: true, FieldsPerRecord: -1}} {
		line, err := d.FormatRecord(record)
		require.NoError(t, err)

		got, err := d.Reader(strings.NewReader(line)).Read()
		require.NoError(t, err)
		assert.Equal(t, record, got)
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]rune{"": ',', "tab": '\t', `\t`: '\t', "pipe": '|', "semicolon": ';', ":": ':'}
	for in, want := range tests {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDelimiter("ab")
	assert.Error(t, err)
}

func TestDialect_Validate(t *testing.T) {
	assert.NoError(t, DefaultDialect().Validate())
	assert.Error(t, Dialect{Comma: '\n'}.Validate())
	assert.Error(t, Dialect{Comma: ';', Comment: ';'}.Validate())
}
