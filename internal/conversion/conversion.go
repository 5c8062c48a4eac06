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

// Package conversion holds small operators for turning raw records into
// typed values and derived fields.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cardinalhq/karld/internal/logctx"
)

// ErrNotNumber is returned when a value does not start with a digit.
var ErrNotNumber = errors.New("value does not start with a number")

// NumberAsInt returns the number formed by the leading ASCII digits of s,
// so "2nd" yields 2. Failures are logged and returned; callers decide
// whether to skip the record.
func NumberAsInt(ctx context.Context, s string) (int64, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	var err error
	if end == 0 {
		err = fmt.Errorf("%w: %q", ErrNotNumber, s)
	} else {
		var n int64
		n, err = strconv.ParseInt(s[:end], 10, 64)
		if err == nil {
			return n, nil
		}
	}

	logctx.FromContext(ctx).Error("Failed to convert value to int",
		slog.String("value", s),
		slog.Any("error", err))
	return 0, err
}

// Conversion derives one named value from an entity.
type Conversion[T, V any] struct {
	Key     string
	Convert func(T) V
}

// KeyValue is one converted field.
type KeyValue[V any] struct {
	Key   string
	Value V
}

// ApplyConversions returns the converted values in conversion order.
func ApplyConversions[T, V any](conversions []Conversion[T, V], entity T) []V {
	out := make([]V, len(conversions))
	for i, c := range conversions {
		out[i] = c.Convert(entity)
	}
	return out
}

// ApplyConversionMap returns the converted values paired with their keys,
// in conversion order.
func ApplyConversionMap[T, V any](conversions []Conversion[T, V], entity T) []KeyValue[V] {
	out := make([]KeyValue[V], len(conversions))
	for i, c := range conversions {
		out[i] = KeyValue[V]{Key: c.Key, Value: c.Convert(entity)}
	}
	return out
}

// JoinStrippedValues formats every gotten value, trims surrounding white
// space, drops empty results and joins the rest with sep.
func JoinStrippedValues[T any](sep string, getters []func(T) any, entity T) string {
	parts := make([]string, 0, len(getters))
	for _, get := range getters {
		if v := strings.TrimSpace(fmt.Sprint(get(entity))); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// Field returns a getter for column i of a row, or "" when the row is short.
func Field(i int) func([]string) string {
	return func(row []string) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
}
