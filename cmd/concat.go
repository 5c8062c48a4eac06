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

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/runner"
)

func init() {
	cmd := &cobra.Command{
		Use:   "concat PATH...",
		Short: "Concatenate CSV files into one file",
		Long: `Concatenate the CSV files named or found under the given directories, in
walk order, into a single file. Inputs are opened one at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			outDir, err := c.Flags().GetString("out-dir")
			if err != nil {
				return fmt.Errorf("failed to get out-dir flag: %w", err)
			}
			name, err := c.Flags().GetString("name")
			if err != nil {
				return fmt.Errorf("failed to get name flag: %w", err)
			}
			prefix, err := c.Flags().GetString("prefix")
			if err != nil {
				return fmt.Errorf("failed to get prefix flag: %w", err)
			}
			return runCommand(c, "concat", func(ctx context.Context, cfg *config.Config) error {
				return runConcat(ctx, c.OutOrStdout(), cfg, args, outDir, prefix, name)
			})
		},
	}

	addDialectFlags(cmd)
	cmd.Flags().String("out-dir", "", "Directory for the combined file")
	cmd.Flags().String("name", "combined.csv", "Name of the combined file")
	cmd.Flags().String("prefix", "", "Prefix for the combined file name")
	cmd.Flags().String("out-encoding", "utf-8", "Character encoding of the combined file")
	cmd.Flags().String("compression", "", "Output compression: none, gzip or zstd (default: from the name)")
	if err := cmd.MarkFlagRequired("out-dir"); err != nil {
		panic(fmt.Errorf("failed to mark out-dir flag as required: %w", err))
	}

	rootCmd.AddCommand(cmd)
}

func runConcat(ctx context.Context, out io.Writer, cfg *config.Config, args []string, outDir, prefix, name string) error {
	opts, err := cfg.CSVOptions()
	if err != nil {
		return err
	}
	files, err := inputFiles(ctx, args, filewalk.IsCSV)
	if err != nil {
		return err
	}

	info, err := runner.CSVFilesToFile(ctx, runner.Concat[[]string], prefix, outDir, name, files, opts)
	if err != nil {
		return fmt.Errorf("failed to concatenate %d files: %w", len(files), err)
	}
	printShards(out, []filewriter.ShardInfo{info})

	logctx.FromContext(ctx).Info("Concatenated files",
		slog.Int("files", len(files)),
		slog.Int64("records", info.Records),
		slog.String("path", info.Path))
	return nil
}
