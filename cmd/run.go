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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/conversion"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/pipeline"
	"github.com/cardinalhq/karld/internal/progress"
	"github.com/cardinalhq/karld/internal/runner"
)

type transformOptions struct {
	op        string
	columns   []int
	dropEmpty bool
}

var fieldOps = map[string]func(string) string{
	"copy":  func(s string) string { return s },
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

func init() {
	cmd := &cobra.Command{
		Use:   "run DIR",
		Short: "Transform every CSV file under a directory into a new file",
		Long: `Read every CSV file under DIR, transform its rows and write them to
OUT-DIR/{prefix}{lower(file name)}. Files are processed on a worker pool
unless --serial is given or runner.pooled is false.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			flags := c.Flags()
			outDir, err := flags.GetString("out-dir")
			if err != nil {
				return fmt.Errorf("failed to get out-dir flag: %w", err)
			}
			prefix, err := flags.GetString("prefix")
			if err != nil {
				return fmt.Errorf("failed to get prefix flag: %w", err)
			}
			serial, err := flags.GetBool("serial")
			if err != nil {
				return fmt.Errorf("failed to get serial flag: %w", err)
			}
			var to transformOptions
			if to.op, err = flags.GetString("op"); err != nil {
				return fmt.Errorf("failed to get op flag: %w", err)
			}
			if to.columns, err = flags.GetIntSlice("columns"); err != nil {
				return fmt.Errorf("failed to get columns flag: %w", err)
			}
			if to.dropEmpty, err = flags.GetBool("drop-empty"); err != nil {
				return fmt.Errorf("failed to get drop-empty flag: %w", err)
			}
			return runCommand(c, "run", func(ctx context.Context, cfg *config.Config) error {
				if serial {
					cfg.Runner.Pooled = false
				}
				return runTransform(ctx, c.OutOrStdout(), cfg, args[0], outDir, prefix, to)
			})
		},
	}

	addDialectFlags(cmd)
	cmd.Flags().String("out-dir", "", "Directory for the output files")
	cmd.Flags().String("prefix", "", "Prefix for every output file name")
	cmd.Flags().String("op", "copy", "Field operation: copy, upper, lower or trim")
	cmd.Flags().IntSlice("columns", nil, "Zero-based columns to keep, in output order (default: all)")
	cmd.Flags().Bool("drop-empty", false, "Drop rows whose fields are all blank")
	cmd.Flags().Bool("serial", false, "Process one file at a time")
	cmd.Flags().Int("workers", 0, "Worker pool size (default: GOMAXPROCS)")
	cmd.Flags().String("out-encoding", "utf-8", "Character encoding of the output files")
	if err := cmd.MarkFlagRequired("out-dir"); err != nil {
		panic(fmt.Errorf("failed to mark out-dir flag as required: %w", err))
	}

	rootCmd.AddCommand(cmd)
}

// rowTransform builds the per-row transform described by to.
func rowTransform(to transformOptions) (runner.TransformFunc[[]string, []string], error) {
	op, ok := fieldOps[to.op]
	if !ok {
		return nil, fmt.Errorf("unknown op %q", to.op)
	}

	var project []conversion.Conversion[[]string, string]
	for _, col := range to.columns {
		if col < 0 {
			return nil, fmt.Errorf("column must not be negative, got %d", col)
		}
		project = append(project, conversion.Conversion[[]string, string]{
			Key:     strconv.Itoa(col),
			Convert: conversion.Field(col),
		})
	}

	return func(rows pipeline.Reader[[]string]) pipeline.Reader[[]string] {
		return pipeline.FilterMap(rows, func(row []string) ([]string, bool, error) {
			if project != nil {
				row = conversion.ApplyConversions(project, row)
			}
			if to.dropEmpty && isBlank(row) {
				return nil, false, nil
			}
			out := make([]string, len(row))
			for i, field := range row {
				out[i] = op(field)
			}
			return out, true, nil
		})
	}, nil
}

func isBlank(row []string) bool {
	getters := make([]func([]string) any, len(row))
	for i := range row {
		get := conversion.Field(i)
		getters[i] = func(r []string) any { return get(r) }
	}
	return conversion.JoinStrippedValues("", getters, row) == ""
}

func runTransform(ctx context.Context, out io.Writer, cfg *config.Config, root, outDir, prefix string, to transformOptions) error {
	inside, err := isWithin(root, outDir)
	if err != nil {
		return err
	}
	if inside {
		return fmt.Errorf("out-dir %s must not be inside %s", outDir, root)
	}
	transform, err := rowTransform(to)
	if err != nil {
		return err
	}
	opts, err := cfg.CSVOptions()
	if err != nil {
		return err
	}

	var counters progress.Counters
	reporter := progress.New(cfg.Runner.ProgressInterval, progress.LogReport("run", &counters))
	reporter.Start(ctx)
	defer reporter.Stop(ctx)

	toFile := runner.CSVFileToFile(transform, prefix, outDir, opts)
	fn := func(ctx context.Context, fp filewalk.FilePath) (filewriter.ShardInfo, error) {
		info, err := toFile(ctx, fp)
		counters.Files.Add(1)
		counters.Records.Add(info.Records)
		return info, err
	}
	ropts := runner.RunOptions{Filter: filewalk.IsCSV, Workers: cfg.Runner.Workers}

	var results []filewriter.ShardInfo
	if cfg.Runner.Pooled {
		results, err = runner.PoolRunFilesToFiles(ctx, root, fn, ropts)
	} else {
		results, err = runner.SerialRunFilesToFiles(ctx, root, fn, ropts)
	}
	printShards(out, results)
	if err != nil {
		return err
	}

	logctx.FromContext(ctx).Info("Transformed files",
		slog.Int("files", len(results)),
		slog.Bool("pooled", cfg.Runner.Pooled))
	return nil
}
