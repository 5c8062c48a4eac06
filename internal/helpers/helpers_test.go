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

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBoolEnv(t *testing.T) {
	const name = "KARLD_TEST_BOOL_ENV"

	tests := []struct {
		value        string
		defaultValue bool
		expected     bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"enabled", false, true},
		{"false", true, false},
		{"0", true, false},
		{"Disabled", true, false},
		{"", true, true},
		{"", false, false},
		{"whatever", false, true},
	}
	for _, tt := range tests {
		t.Setenv(name, tt.value)
		assert.Equal(t, tt.expected, GetBoolEnv(name, tt.defaultValue), "value %q", tt.value)
	}
}

func TestDebugEnabled(t *testing.T) {
	t.Setenv("KARLD_DEBUG", "")
	t.Setenv("DEBUG", "")
	assert.False(t, DebugEnabled())

	t.Setenv("DEBUG", "1")
	assert.True(t, DebugEnabled())

	t.Setenv("DEBUG", "")
	t.Setenv("KARLD_DEBUG", "true")
	assert.True(t, DebugEnabled())
}

func TestOTLPEnabled(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("ENABLE_OTLP_TELEMETRY", "true")
	assert.False(t, OTLPEnabled())

	t.Setenv("OTEL_SERVICE_NAME", "karld")
	assert.True(t, OTLPEnabled())

	t.Setenv("ENABLE_OTLP_TELEMETRY", "false")
	assert.False(t, OTLPEnabled())
}

func TestGetFileFormat(t *testing.T) {
	tests := map[string]FileFormat{
		"a.csv":       FormatCSV,
		"A.CSV.GZ":    FormatCSV,
		"b.tsv":       FormatCSV,
		"c.json":      FormatJSON,
		"c.jsonl.zst": FormatJSON,
		"d.ndjson":    FormatJSON,
		"e.log":       FormatLines,
		"noext":       FormatLines,
		"archive.gz":  FormatLines,
	}
	for name, want := range tests {
		assert.Equal(t, want, GetFileFormat(name), name)
	}
}

func TestStripCompressionExt(t *testing.T) {
	assert.Equal(t, "a.csv", StripCompressionExt("a.csv.gz"))
	assert.Equal(t, "a.csv", StripCompressionExt("a.csv.ZST"))
	assert.Equal(t, "a.csv", StripCompressionExt("a.csv"))
}
