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

// Package filereader decodes flat files into lazy record streams.
//
// # Formats
//
//   - CSVReader: delimited rows as []string, configured by a Dialect. Quoted
//     fields may span lines.
//   - JSONLinesReader: one JSON document per line, decoded into any type T.
//   - LineReader: raw lines including their terminator.
//   - MultiLineReader: groups raw lines into records that start where a
//     caller-supplied predicate says a new record begins.
//
// Every reader implements pipeline.Reader and returns io.EOF when exhausted.
//
// # Encodings and compression
//
// Open decodes a file from a declared character encoding (default UTF-8) and
// transparently decompresses .gz and .zst files:
//
//	rc, err := filereader.Open(path, filereader.OpenOptions{Encoding: "latin1"})
//	if err != nil {
//	    return err
//	}
//	rows, err := filereader.NewCSVReader(rc, filereader.DefaultDialect())
//
// Text that is not valid for the declared encoding fails on the offending
// line with ErrInvalidEncoding; no fallback encoding is attempted.
package filereader
