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

package filewalk

import (
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// Filter reports whether a file should be processed.
type Filter func(FilePath) bool

// HasExtension returns a Filter matching any of exts, case-insensitively.
// Extensions may be given with or without the leading dot.
func HasExtension(exts ...string) Filter {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set.Add(ext)
	}
	return func(fp FilePath) bool {
		return set.Contains(strings.ToLower(filepath.Ext(fp.Name)))
	}
}

var (
	isCSV  = HasExtension(".csv")
	isJSON = HasExtension(".json")
)

// IsCSV matches files with a .csv extension.
func IsCSV(fp FilePath) bool { return isCSV(fp) }

// IsJSON matches files with a .json extension.
func IsJSON(fp FilePath) bool { return isJSON(fp) }

// All matches files accepted by every filter.
func All(filters ...Filter) Filter {
	return func(fp FilePath) bool {
		for _, f := range filters {
			if f != nil && !f(fp) {
				return false
			}
		}
		return true
	}
}

// NewFilteredReader drops the files of src that filter rejects. A nil filter
// passes everything through.
func NewFilteredReader(src pipeline.Reader[FilePath], filter Filter) pipeline.Reader[FilePath] {
	if filter == nil {
		return src
	}
	return pipeline.Filter(src, filter)
}

// CSVPaths returns a lazy stream of the CSV files under root.
func CSVPaths(root string) pipeline.Reader[FilePath] {
	return NewFilteredReader(Walk(root), IsCSV)
}

// JSONPaths returns a lazy stream of the JSON files under root.
func JSONPaths(root string) pipeline.Reader[FilePath] {
	return NewFilteredReader(Walk(root), IsJSON)
}
