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

// Package filewalk enumerates the files under a directory tree as a lazy
// stream of FilePath values, optionally filtered by a predicate.
package filewalk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cardinalhq/karld/internal/pipeline"
)

// FilePath is a file found by Walk.
type FilePath struct {
	// Path is the full path, rooted at the directory passed to Walk.
	Path string
	// Name is the base name of the file.
	Name string
}

// Walker lazily enumerates regular files below a root directory. Directories
// are read one at a time as the walk reaches them. Symlinks are reported as
// files and never followed.
type Walker struct {
	stack   []string
	pending []FilePath
	closed  bool
	found   int64
}

var _ pipeline.Reader[FilePath] = (*Walker)(nil)

// Walk returns a Walker over root. The root is not read until the first Next.
func Walk(root string) *Walker {
	return &Walker{stack: []string{root}}
}

// Next returns the next file. Entries of one directory are returned in
// directory order, and subdirectories are visited after their parent's files.
func (w *Walker) Next(ctx context.Context) (FilePath, error) {
	if w.closed {
		return FilePath{}, pipeline.ErrReaderClosed
	}

	for len(w.pending) == 0 {
		if len(w.stack) == 0 {
			return FilePath{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return FilePath{}, err
		}

		dir := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return FilePath{}, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}

		var subdirs []string
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				subdirs = append(subdirs, full)
				continue
			}
			w.pending = append(w.pending, FilePath{Path: full, Name: entry.Name()})
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			w.stack = append(w.stack, subdirs[i])
		}
	}

	fp := w.pending[0]
	w.pending = w.pending[1:]
	w.found++
	return fp, nil
}

func (w *Walker) Close() error {
	w.closed = true
	w.stack = nil
	w.pending = nil
	return nil
}

// FilesFound returns the number of files returned so far.
func (w *Walker) FilesFound() int64 {
	return w.found
}

// Paths walks root and returns every file accepted by filter. A nil filter
// accepts every file.
func Paths(ctx context.Context, root string, filter Filter) ([]FilePath, error) {
	r := NewFilteredReader(Walk(root), filter)
	defer func() { _ = r.Close() }()

	return pipeline.ReadAll(ctx, r)
}
