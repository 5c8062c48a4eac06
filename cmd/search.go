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
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/karld/config"
	"github.com/cardinalhq/karld/internal/conversion"
	"github.com/cardinalhq/karld/internal/filewalk"
	"github.com/cardinalhq/karld/internal/logctx"
	"github.com/cardinalhq/karld/internal/pipeline"
	"github.com/cardinalhq/karld/internal/progress"
	"github.com/cardinalhq/karld/internal/runner"
)

const (
	searchSerial     = "serial"
	searchPooled     = "pooled"
	searchDistribute = "distribute"
)

type searchOptions struct {
	pattern    string
	column     int
	ignoreCase bool
	mode       string
}

// searchResult is what one search task found.
type searchResult struct {
	scanned int
	matches [][]string
}

func init() {
	cmd := &cobra.Command{
		Use:   "search DIR",
		Short: "Print the CSV rows under a directory that contain a pattern",
		Long: `Search every CSV file under DIR for rows containing --pattern. The serial and
pooled modes scan whole files per task and print matches in walk order; the
distribute mode hands batches of rows to the worker pool and prints matches
as batches complete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			flags := c.Flags()
			var so searchOptions
			var err error
			if so.pattern, err = flags.GetString("pattern"); err != nil {
				return fmt.Errorf("failed to get pattern flag: %w", err)
			}
			if so.column, err = flags.GetInt("column"); err != nil {
				return fmt.Errorf("failed to get column flag: %w", err)
			}
			if so.ignoreCase, err = flags.GetBool("ignore-case"); err != nil {
				return fmt.Errorf("failed to get ignore-case flag: %w", err)
			}
			if so.mode, err = flags.GetString("mode"); err != nil {
				return fmt.Errorf("failed to get mode flag: %w", err)
			}
			return runCommand(c, "search", func(ctx context.Context, cfg *config.Config) error {
				return runSearch(ctx, c.OutOrStdout(), cfg, args[0], so)
			})
		},
	}

	addDialectFlags(cmd)
	cmd.Flags().String("pattern", "", "Text to look for")
	cmd.Flags().Int("column", -1, "Zero-based column to search (default: every column)")
	cmd.Flags().Bool("ignore-case", false, "Match without regard to case")
	cmd.Flags().String("mode", searchPooled, "How to run: serial, pooled or distribute")
	cmd.Flags().Int("workers", 0, "Worker pool size (default: GOMAXPROCS)")
	cmd.Flags().Int("batch-size", 0, "Rows per task in distribute mode")
	if err := cmd.MarkFlagRequired("pattern"); err != nil {
		panic(fmt.Errorf("failed to mark pattern flag as required: %w", err))
	}

	rootCmd.AddCommand(cmd)
}

// rowMatcher returns a predicate reporting whether a row contains so.pattern.
func rowMatcher(so searchOptions) func([]string) bool {
	pattern := so.pattern
	norm := func(s string) string { return s }
	if so.ignoreCase {
		pattern = strings.ToLower(pattern)
		norm = strings.ToLower
	}
	contains := func(s string) bool { return strings.Contains(norm(s), pattern) }

	if so.column >= 0 {
		field := conversion.Field(so.column)
		return func(row []string) bool { return contains(field(row)) }
	}
	return func(row []string) bool { return slices.ContainsFunc(row, contains) }
}

// scanRows drains rows, collecting matches through a tap.
func scanRows(ctx context.Context, rows pipeline.Reader[[]string], match func([]string) bool, counters *progress.Counters) (searchResult, error) {
	matches := pipeline.NewBucket(func(row []string) ([]string, bool) {
		return row, match(row)
	})
	tapped := pipeline.NewTapReader[[]string](rows, matches)

	var res searchResult
	err := pipeline.ForEach(ctx, tapped, func([]string) error {
		res.scanned++
		counters.Records.Add(1)
		return nil
	})
	res.matches = matches.Drain()
	return res, err
}

func runSearch(ctx context.Context, out io.Writer, cfg *config.Config, root string, so searchOptions) error {
	if so.pattern == "" {
		return errors.New("pattern must not be empty")
	}
	opts, err := cfg.CSVOptions()
	if err != nil {
		return err
	}
	match := rowMatcher(so)

	var counters progress.Counters
	reporter := progress.New(cfg.Runner.ProgressInterval, progress.LogReport("search", &counters))
	reporter.Start(ctx)
	defer reporter.Stop(ctx)

	var results []searchResult
	switch so.mode {
	case searchSerial, searchPooled:
		fn := runner.CSVFileConsumer(func(ctx context.Context, rows pipeline.Reader[[]string]) (searchResult, error) {
			defer counters.Files.Add(1)
			return scanRows(ctx, rows, match, &counters)
		}, opts)
		ropts := runner.RunOptions{Filter: filewalk.IsCSV, Workers: cfg.Runner.Workers}
		if so.mode == searchSerial {
			results, err = runner.SerialRunFilesToFiles(ctx, root, fn, ropts)
		} else {
			results, err = runner.PoolRunFilesToFiles(ctx, root, fn, ropts)
		}
	case searchDistribute:
		results, err = distributeSearch(ctx, cfg, root, opts, match, &counters)
	default:
		return fmt.Errorf("unknown mode %q", so.mode)
	}

	var scanned, found int
	for _, res := range results {
		scanned += res.scanned
		found += len(res.matches)
		for _, row := range res.matches {
			if werr := opts.Dialect.WriteRecord(out, row); werr != nil {
				return werr
			}
		}
	}
	if err != nil {
		return err
	}

	logctx.FromContext(ctx).Info("Search complete",
		slog.String("mode", so.mode),
		slog.Int("rowsScanned", scanned),
		slog.Int("matches", found))
	return nil
}

func distributeSearch(ctx context.Context, cfg *config.Config, root string, opts runner.CSVOptions, match func([]string) bool, counters *progress.Counters) ([]searchResult, error) {
	pool := runner.NewPool(cfg.Runner.Workers)
	defer func() { _ = pool.Close() }()

	d, err := runner.DistributeFiles(pool, root, filewalk.IsCSV, runner.CSVOpener(opts), cfg.Runner.BatchSize,
		func(ctx context.Context, batch [][]string) (searchResult, error) {
			return scanRows(ctx, pipeline.NewSliceSource(batch), match, counters)
		})
	if err != nil {
		return nil, err
	}

	results, err := pipeline.ReadAll[searchResult](ctx, d)
	return results, errors.Join(err, d.Close())
}
