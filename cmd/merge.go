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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/conversion"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/merger"
	"github.com/cardinalhq/karld/internal/pipeline"
)

type mergeOptions struct {
	column  int
	numeric bool
	multi   bool
}

func init() {
	cmd := &cobra.Command{
		Use:   "merge PATH...",
		Short: "Group the rows of CSV files by a key column",
		Long: `Read every CSV file named or found under the given directories, sort and
merge their rows on a key column and print the rows group by group, with an
empty line between groups. Rows with equal keys keep their input order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var mo mergeOptions
			var err error
			if mo.column, err = c.Flags().GetInt("column"); err != nil {
				return fmt.Errorf("failed to get column flag: %w", err)
			}
			if mo.numeric, err = c.Flags().GetBool("numeric"); err != nil {
				return fmt.Errorf("failed to get numeric flag: %w", err)
			}
			if mo.multi, err = c.Flags().GetBool("multi"); err != nil {
				return fmt.Errorf("failed to get multi flag: %w", err)
			}
			return runCommand(c, "merge", func(ctx context.Context, cfg *config.Config) error {
				return runMerge(ctx, c.OutOrStdout(), cfg, args, mo)
			})
		},
	}

	addDialectFlags(cmd)
	cmd.Flags().Int("column", 0, "Zero-based index of the key column")
	cmd.Flags().Bool("numeric", false, "Compare keys by their leading integer instead of as text")
	cmd.Flags().Bool("multi", false, "Only print groups with more than one row")

	rootCmd.AddCommand(cmd)
}

func runMerge(ctx context.Context, out io.Writer, cfg *config.Config, args []string, mo mergeOptions) error {
	if mo.column < 0 {
		return fmt.Errorf("column must not be negative, got %d", mo.column)
	}
	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}
	files, err := inputFiles(ctx, args, filewalk.IsCSV)
	if err != nil {
		return err
	}

	sources := make([]pipeline.Reader[[]string], 0, len(files))
	for _, fp := range files {
		r, err := filereader.OpenCSV(fp.Path, dialect, cfg.OpenOptions())
		if err != nil {
			return errors.Join(err, pipeline.CloseAll(sources))
		}
		sources = append(sources, r)
	}

	column := conversion.Field(mo.column)
	var groups [][][]string
	if mo.numeric {
		key := func(row []string) int64 {
			// Keys without a leading integer sort first.
			n, _ := conversion.NumberAsInt(ctx, column(row))
			return n
		}
		groups, err = groupRows(ctx, sources, key, mo.multi)
	} else {
		groups, err = groupRows(ctx, sources, column, mo.multi)
	}
	if err != nil {
		return err
	}

	for i, g := range groups {
		if i > 0 {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
		for _, row := range g {
			if err := dialect.WriteRecord(out, row); err != nil {
				return err
			}
		}
	}

	logctx.FromContext(ctx).Info("Merged files",
		slog.Int("files", len(files)),
		slog.Int("groups", len(groups)))
	return nil
}

func groupRows[K int64 | string](ctx context.Context, sources []pipeline.Reader[[]string], key func([]string) K, multi bool) ([][][]string, error) {
	var (
		groups []merger.Group[K, []string]
		err    error
	)
	if multi {
		groups, err = merger.MultiGroupsOf(ctx, sources, key)
	} else {
		groups, err = merger.SortMergeGroup(ctx, sources, key)
	}
	if err != nil {
		return nil, err
	}
	rows := make([][][]string, len(groups))
	for i, g := range groups {
		rows[i] = g.Items
	}
	return rows, nil
}
