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

package filewriter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/pipeline"
)

func numberedRecords(n int) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = []string{strconv.Itoa(i), fmt.Sprintf("name-%d", i)}
	}
	return out
}

func readShards(t *testing.T, shards []ShardInfo, dialect filereader.Dialect, opts filereader.OpenOptions) [][]string {
	t.Helper()
	var all [][]string
	for _, s := range shards {
		r, err := filereader.OpenCSV(s.Path, dialect, opts)
		require.NoError(t, err)
		rows, err := pipeline.ReadAll[[]string](context.Background(), r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		all = append(all, rows...)
	}
	return all
}

func TestSplit_ShardSizes(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	records := numberedRecords(10)

	shards, err := Split(ctx, pipeline.NewSliceSource(records), CSVWriterFactory{Dialect: filereader.DefaultDialect()}, SplitOptions{
		OutDir:   dir,
		BaseName: "x",
		MaxLines: 3,
	})
	require.NoError(t, err)
	require.Len(t, shards, 4)

	var sizes []int64
	for i, s := range shards {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, filepath.Join(dir, strconv.Itoa(i)+"_x"), s.Path)
		assert.Equal(t, strconv.Itoa(i)+"_x", s.Name)
		sizes = append(sizes, s.Records)

		data, err := os.ReadFile(s.Path)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), s.Bytes)
		assert.Equal(t, xxhash.Sum64(data), s.Checksum)
	}
	assert.Equal(t, []int64{3, 3, 3, 1}, sizes)

	assert.Equal(t, records, readShards(t, shards, filereader.DefaultDialect(), filereader.OpenOptions{}))
}

func TestSplit_RoundTripProperty(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 2, 5, 9, 10, 11} {
		for _, k := range []int{1, 3, 10} {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				records := numberedRecords(n)
				shards, err := Split(ctx, pipeline.NewSliceSource(records), CSVWriterFactory{}, SplitOptions{
					OutDir:         t.TempDir(),
					BaseName:       "data.csv",
					MaxLines:       k,
					LineBufferSize: 2,
				})
				require.NoError(t, err)
				assert.Len(t, shards, (n+k-1)/k)
				assert.Equal(t, records, readShards(t, shards, filereader.DefaultDialect(), filereader.OpenOptions{}))
			})
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	dir := t.TempDir()
	shards, err := Split(context.Background(), pipeline.NewSliceSource[[]string](nil), CSVWriterFactory{}, SplitOptions{
		OutDir:   dir,
		BaseName: "x",
		MaxLines: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, shards)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplit_NonASCIIRoundTrip(t *testing.T) {
	ctx := context.Background()
	records := [][]string{
		{"Zoë", "Ελληνικά", "日本語"},
		{"emoji 🚀", "quote \"inside\"", "comma, here"},
		{"multi\nline", "ß", "ñ"},
	}
	dialect := filereader.Dialect{Comma: ';', FieldsPerRecord: -1}

	shards, err := Split(ctx, pipeline.NewSliceSource(records), CSVWriterFactory{Dialect: dialect}, SplitOptions{
		OutDir:   t.TempDir(),
		BaseName: "unicode.csv",
		MaxLines: 2,
	})
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, records, readShards(t, shards, dialect, filereader.OpenOptions{}))
}

func TestSplit_EncodedAndCompressed(t *testing.T) {
	ctx := context.Background()
	records := [][]string{{"café", "1"}, {"crème", "2"}, {"brûlée", "3"}}

	shards, err := Split(ctx, pipeline.NewSliceSource(records), CSVWriterFactory{}, SplitOptions{
		OutDir:      t.TempDir(),
		BaseName:    "menu.csv",
		MaxLines:    2,
		Encoding:    "windows-1252",
		Compression: filereader.CompressionGzip,
	})
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, "0_menu.csv.gz", shards[0].Name)
	assert.Equal(t, "1_menu.csv.gz", shards[1].Name)

	assert.Equal(t, records, readShards(t, shards, filereader.DefaultDialect(), filereader.OpenOptions{Encoding: "windows-1252"}))
}

func TestSplit_JSONLines(t *testing.T) {
	type rec struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	ctx := context.Background()
	records := []rec{{1, "a"}, {2, "<b>"}, {3, "ü"}}

	shards, err := Split(ctx, pipeline.NewSliceSource(records), JSONLinesWriterFactory[rec]{}, SplitOptions{
		OutDir:   t.TempDir(),
		BaseName: "r.json",
		MaxLines: 2,
	})
	require.NoError(t, err)
	require.Len(t, shards, 2)

	data, err := os.ReadFile(shards[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1,\"name\":\"a\"}\n{\"id\":2,\"name\":\"<b>\"}\n", string(data))

	var got []rec
	for _, s := range shards {
		r, err := filereader.OpenJSONLines[rec](s.Path, filereader.OpenOptions{})
		require.NoError(t, err)
		part, err := pipeline.ReadAll[rec](ctx, r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		got = append(got, part...)
	}
	assert.Equal(t, records, got)
}

func TestSplit_UpstreamErrorKeepsWrittenShards(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	n := 0
	rows := pipeline.NewFuncReader(func(context.Context) (string, error) {
		if n == 4 {
			return "", boom
		}
		n++
		return strconv.Itoa(n) + "\n", nil
	}, nil)

	shards, err := Split[string](ctx, rows, LineWriterFactory{}, SplitOptions{
		OutDir:   t.TempDir(),
		BaseName: "lines.txt",
		MaxLines: 2,
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, shards, 2)

	data, err := os.ReadFile(shards[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "3\n4\n", string(data))
}

func TestSplit_BadOptions(t *testing.T) {
	ctx := context.Background()
	_, err := Split[string](ctx, pipeline.NewSliceSource([]string{"a"}), LineWriterFactory{}, SplitOptions{OutDir: t.TempDir()})
	assert.Error(t, err)

	_, err = Split[string](ctx, pipeline.NewSliceSource([]string{"a"}), LineWriterFactory{}, SplitOptions{OutDir: t.TempDir(), BaseName: "x", MaxLines: -1})
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Split[string](ctx, pipeline.NewSliceSource([]string{"a"}), LineWriterFactory{}, SplitOptions{OutDir: filepath.Join(file, "sub"), BaseName: "x"})
	assert.Error(t, err)
}

func TestSplitFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")

	var buf bytes.Buffer
	for i := range 7 {
		fmt.Fprintf(&buf, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	shards, err := SplitFile(ctx, path, "", 3)
	require.NoError(t, err)
	require.Len(t, shards, 3)
	assert.Equal(t, filepath.Join(dir, "0_big.log"), shards[0].Path)

	var joined []byte
	for _, s := range shards {
		data, err := os.ReadFile(s.Path)
		require.NoError(t, err)
		joined = append(joined, data...)
	}
	assert.Equal(t, buf.Bytes(), joined)
}

func TestShardName(t *testing.T) {
	assert.Equal(t, "0_x", ShardName(0, "x"))
	assert.Equal(t, "12_data.csv", ShardName(12, "data.csv"))
}

var _ io.Writer = (*fileSink)(nil)
