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
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding is declared.
const DefaultEncoding = "utf-8"

// IsUTF8 reports whether name refers to UTF-8.
func IsUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}

// LookupEncoding resolves an encoding by its WHATWG or IANA name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// NewDecodingReader returns r decoded from the named encoding to UTF-8.
// UTF-8 input is passed through untouched so the record readers can reject
// invalid sequences instead of having them silently replaced.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	if IsUTF8(name) {
		return r, nil
	}
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewEncodingWriter returns a writer that encodes UTF-8 text written to it
// into the named encoding. Close must be called to flush the encoder; it does
// not close w. Characters that cannot be represented fail the write.
func NewEncodingWriter(w io.Writer, name string) (io.WriteCloser, error) {
	if IsUTF8(name) {
		return nopWriteCloser{w}, nil
	}
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// checkUTF8 fails with ErrInvalidEncoding when s is not valid UTF-8.
func checkUTF8(ctx context.Context, line int, s ...string) error {
	for _, v := range s {
		if !utf8.ValidString(v) {
			decodeErrorsCounter.Add(ctx, 1)
			return &LineError{Line: line, Err: ErrInvalidEncoding}
		}
	}
	return nil
}
