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
	"path/filepath"
	"strings"
)

// FileFormat is the record layout of a file, judged by its name.
type FileFormat string

const (
	FormatCSV   FileFormat = "csv"
	FormatJSON  FileFormat = "json"
	FormatLines FileFormat = "lines"
)

var compressionExts = map[string]bool{".gz": true, ".gzip": true, ".zst": true, ".zstd": true}

// StripCompressionExt removes a trailing .gz or .zst style extension.
func StripCompressionExt(name string) string {
	ext := filepath.Ext(name)
	if compressionExts[strings.ToLower(ext)] {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// GetFileFormat maps a file name to its record layout, looking past any
// compression extension. Unknown extensions are treated as raw lines.
func GetFileFormat(name string) FileFormat {
	switch strings.ToLower(filepath.Ext(StripCompressionExt(name))) {
	case ".csv", ".tsv":
		return FormatCSV
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatLines
	}
}
