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
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/karld/internal/pipeline"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func names(paths []FilePath) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	root := makeTree(t, "a.csv", "b.json", "c.txt")

	csvs, err := pipeline.ReadAll(ctx, CSVPaths(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, names(csvs))
	assert.Equal(t, filepath.Join(root, "a.csv"), csvs[0].Path)

	jsons, err := pipeline.ReadAll(ctx, JSONPaths(root))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.json"}, names(jsons))

	all, err := Paths(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.json", "c.txt"}, names(all))
}

func TestWalk_Recursive(t *testing.T) {
	ctx := context.Background()
	root := makeTree(t, "top.csv", "sub/mid.CSV", "sub/deeper/low.csv", "sub/deeper/skip.tsv", "empty/.keep")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nothing"), 0o755))

	w := Walk(root)
	files, err := pipeline.ReadAll[FilePath](ctx, w)
	require.NoError(t, err)
	assert.Equal(t, []string{".keep", "low.csv", "mid.CSV", "skip.tsv", "top.csv"}, names(files))
	assert.Equal(t, int64(5), w.FilesFound())

	for _, f := range files {
		assert.Equal(t, filepath.Base(f.Path), f.Name)
		info, err := os.Stat(f.Path)
		require.NoError(t, err)
		assert.False(t, info.IsDir())
	}

	csvs, err := Paths(ctx, root, IsCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"low.csv", "mid.CSV", "top.csv"}, names(csvs))
}

func TestWalk_Lazy(t *testing.T) {
	ctx := context.Background()
	root := makeTree(t, "a/1.csv", "b/2.csv")

	w := Walk(root)
	first, err := w.Next(ctx)
	require.NoError(t, err)

	// A directory removed before the walk reaches it is not read.
	other := "b"
	if filepath.Base(filepath.Dir(first.Path)) == "b" {
		other = "a"
	}
	require.NoError(t, os.RemoveAll(filepath.Join(root, other)))

	_, err = w.Next(ctx)
	assert.Error(t, err)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "missing")).Next(context.Background())
	assert.Error(t, err)
}

func TestWalk_Closed(t *testing.T) {
	w := Walk(t.TempDir())
	require.NoError(t, w.Close())
	_, err := w.Next(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrReaderClosed)
}

func TestHasExtension(t *testing.T) {
	f := HasExtension("csv", ".TSV")
	assert.True(t, f(FilePath{Name: "x.csv"}))
	assert.True(t, f(FilePath{Name: "x.tsv"}))
	assert.True(t, f(FilePath{Name: "X.Csv"}))
	assert.False(t, f(FilePath{Name: "x.csv.gz"}))
	assert.False(t, f(FilePath{Name: "csv"}))

	both := All(IsCSV, func(fp FilePath) bool { return fp.Name != "skip.csv" })
	assert.True(t, both(FilePath{Name: "keep.csv"}))
	assert.False(t, both(FilePath{Name: "skip.csv"}))
}
