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
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/logctx"
)

func init() {
	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Split the raw lines of a file into numbered shards",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			outDir, err := c.Flags().GetString("out-dir")
			if err != nil {
				return fmt.Errorf("failed to get out-dir flag: %w", err)
			}
			maxLines, err := c.Flags().GetInt("lines")
			if err != nil {
				return fmt.Errorf("failed to get lines flag: %w", err)
			}
			return runCommand(c, "split", func(ctx context.Context, _ *config.Config) error {
				return runSplit(ctx, c.OutOrStdout(), args[0], outDir, maxLines)
			})
		},
	}

	cmd.Flags().String("out-dir", "", "Directory for the shards (default: the input file's directory)")
	cmd.Flags().Int("lines", 0, "Maximum lines per shard (default 200000)")

	rootCmd.AddCommand(cmd)
}

func runSplit(ctx context.Context, out io.Writer, path, outDir string, maxLines int) error {
	shards, err := filewriter.SplitFile(ctx, path, outDir, maxLines)
	printShards(out, shards)
	if err != nil {
		return fmt.Errorf("failed to split %s: %w", path, err)
	}
	logctx.FromContext(ctx).Info("Split file",
		slog.String("path", path),
		slog.Int("shards", len(shards)))
	return nil
}
