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

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/filewriter"
)

// runCommand loads the configuration, applies any flags the user set and
// runs fn with telemetry in place.
func runCommand(c *cobra.Command, name string, fn func(ctx context.Context, cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}

	ctx, doneFx, err := setupTelemetry("karld-" + name)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := doneFx(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	start := time.Now()
	err = fn(ctx, cfg)
	recordCommand(ctx, name, start, err)
	return err
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(c *cobra.Command, cfg *config.Config) error {
	flags := c.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	if changed("delimiter") {
		if cfg.CSV.Delimiter, err = flags.GetString("delimiter"); err != nil {
			return err
		}
	}
	if changed("encoding") {
		if cfg.Reader.Encoding, err = flags.GetString("encoding"); err != nil {
			return err
		}
	}
	if changed("out-encoding") {
		if cfg.Shard.Encoding, err = flags.GetString("out-encoding"); err != nil {
			return err
		}
	}
	if changed("compression") {
		if cfg.Shard.Compression, err = flags.GetString("compression"); err != nil {
			return err
		}
	}
	if changed("max-lines") {
		if cfg.Shard.MaxLines, err = flags.GetInt("max-lines"); err != nil {
			return err
		}
	}
	if changed("workers") {
		if cfg.Runner.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if changed("batch-size") {
		if cfg.Runner.BatchSize, err = flags.GetInt("batch-size"); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

// addDialectFlags registers the reader and CSV flags shared by the commands
// that read CSV files.
func addDialectFlags(c *cobra.Command) {
	c.Flags().String("delimiter", ",", "Field delimiter: a single character, tab, comma, pipe or semicolon")
	c.Flags().String("encoding", "utf-8", "Character encoding of the input files")
}

// inputFiles resolves args to files. Directories are walked and only the
// files accepted by filter are kept; files named explicitly are always kept.
func inputFiles(ctx context.Context, args []string, filter filewalk.Filter) ([]filewalk.FilePath, error) {
	var files []filewalk.FilePath
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, filewalk.FilePath{Path: arg, Name: st.Name()})
			continue
		}
		found, err := filewalk.Paths(ctx, arg, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func printShards(w io.Writer, shards []filewriter.ShardInfo) {
	for _, s := range shards {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%016x\n", s.Path, s.Records, s.Bytes, s.Checksum)
	}
}

// isWithin reports whether path is dir or lies below it.
func isWithin(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}
