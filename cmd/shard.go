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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/helpers"
	"github.com/cardinalhq/karld/internal/logctx"
)

func init() {
	cmd := &cobra.Command{
		Use:   "shard FILE",
		Short: "Split a CSV, JSON lines or text file into shards of records",
		Long: `Split a file into shards of at most --max-lines records. The record layout
follows the file extension: .csv and .tsv are read as CSV so quoted fields may
span lines, .json, .jsonl and .ndjson as JSON lines, anything else as raw lines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			outDir, err := c.Flags().GetString("out-dir")
			if err != nil {
				return fmt.Errorf("failed to get out-dir flag: %w", err)
			}
			base, err := c.Flags().GetString("base")
			if err != nil {
				return fmt.Errorf("failed to get base flag: %w", err)
			}
			return runCommand(c, "shard", func(ctx context.Context, cfg *config.Config) error {
				return runShard(ctx, c.OutOrStdout(), cfg, args[0], outDir, base)
			})
		},
	}

	addDialectFlags(cmd)
	cmd.Flags().String("out-dir", "", "Directory for the shards (default: the input file's directory)")
	cmd.Flags().String("base", "", "Shard base name (default: the input file name without compression extension)")
	cmd.Flags().Int("max-lines", 0, "Maximum records per shard")
	cmd.Flags().String("out-encoding", "utf-8", "Character encoding of the shards")
	cmd.Flags().String("compression", "", "Shard compression: none, gzip or zstd (default: from the base name)")

	rootCmd.AddCommand(cmd)
}

func runShard(ctx context.Context, out io.Writer, cfg *config.Config, path, outDir, base string) error {
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if base == "" {
		base = helpers.StripCompressionExt(filepath.Base(path))
	}
	opts := cfg.SplitOptions(outDir, base)
	format := helpers.GetFileFormat(path)

	var (
		shards []filewriter.ShardInfo
		err    error
	)
	switch format {
	case helpers.FormatCSV:
		shards, err = shardCSV(ctx, cfg, path, opts)
	case helpers.FormatJSON:
		shards, err = shardJSON(ctx, cfg, path, opts)
	default:
		shards, err = shardLines(ctx, cfg, path, opts)
	}
	printShards(out, shards)
	if err != nil {
		return fmt.Errorf("failed to shard %s: %w", path, err)
	}

	logctx.FromContext(ctx).Info("Sharded file",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("shards", len(shards)))
	return nil
}

func shardCSV(ctx context.Context, cfg *config.Config, path string, opts filewriter.SplitOptions) ([]filewriter.ShardInfo, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	rows, err := filereader.OpenCSV(path, dialect, cfg.OpenOptions())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return filewriter.Split[[]string](ctx, rows, filewriter.CSVWriterFactory{Dialect: dialect}, opts)
}

func shardJSON(ctx context.Context, cfg *config.Config, path string, opts filewriter.SplitOptions) ([]filewriter.ShardInfo, error) {
	docs, err := filereader.OpenJSONLines[json.RawMessage](path, cfg.OpenOptions())
	if err != nil {
		return nil, err
	}
	defer func() { _ = docs.Close() }()
	return filewriter.Split[json.RawMessage](ctx, docs, filewriter.JSONLinesWriterFactory[json.RawMessage]{}, opts)
}

func shardLines(ctx context.Context, cfg *config.Config, path string, opts filewriter.SplitOptions) ([]filewriter.ShardInfo, error) {
	lines, err := filereader.OpenLines(path, cfg.OpenOptions())
	if err != nil {
		return nil, err
	}
	defer func() { _ = lines.Close() }()
	return filewriter.Split[string](ctx, lines, filewriter.LineWriterFactory{}, opts)
}
