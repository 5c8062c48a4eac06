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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Dialect configures delimited-text parsing and serialization.
// The quote character is always '"'.
type Dialect struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Comment, if not zero, marks lines to skip when reading.
	Comment rune
	// LazyQuotes allows a quote to appear in an unquoted field.
	LazyQuotes bool
	// TrimLeadingSpace ignores leading white space in a field when reading.
	TrimLeadingSpace bool
	// FieldsPerRecord follows encoding/csv: 0 pins the count to the first
	// record, negative allows a variable count.
	FieldsPerRecord int
	// QuoteAll quotes every field when writing, not only those that need it.
	QuoteAll bool
	// UseCRLF terminates written records with \r\n.
	UseCRLF bool
}

// DefaultDialect is comma separated with minimal quoting and variable field counts.
func DefaultDialect() Dialect {
	return Dialect{Comma: ',', FieldsPerRecord: -1}
}

func (d Dialect) comma() rune {
	if d.Comma == 0 {
		return ','
	}
	return d.Comma
}

// Validate reports whether the dialect can be used for both reading and writing.
func (d Dialect) Validate() error {
	c := d.comma()
	if c == '"' || c == '\r' || c == '\n' || c == utf8.RuneError || !utf8.ValidRune(c) {
		return fmt.Errorf("invalid delimiter %q", c)
	}
	if d.Comment != 0 && d.Comment == c {
		return errors.New("comment character must differ from the delimiter")
	}
	return nil
}

// Reader returns an encoding/csv reader configured by the dialect.
func (d Dialect) Reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = d.comma()
	cr.Comment = d.Comment
	cr.LazyQuotes = d.LazyQuotes
	cr.TrimLeadingSpace = d.TrimLeadingSpace
	cr.FieldsPerRecord = d.FieldsPerRecord
	return cr
}

// FormatRecord serializes one record, including the line terminator.
func (d Dialect) FormatRecord(record []string) (string, error) {
	var sb strings.Builder
	if err := d.WriteRecord(&sb, record); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// WriteRecord serializes one record to w, including the line terminator.
func (d Dialect) WriteRecord(w io.Writer, record []string) error {
	if !d.QuoteAll {
		cw := csv.NewWriter(w)
		cw.Comma = d.comma()
		cw.UseCRLF = d.UseCRLF
		if err := cw.Write(record); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	var sb strings.Builder
	for i, field := range record {
		if i > 0 {
			sb.WriteRune(d.comma())
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(field, `"`, `""`))
		sb.WriteByte('"')
	}
	if d.UseCRLF {
		sb.WriteString("\r\n")
	} else {
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// ParseDelimiter turns a configured delimiter into a rune. It accepts a
// single character, an escaped tab ("\t") or the names "tab", "comma",
// "pipe" and "semicolon".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "comma":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
