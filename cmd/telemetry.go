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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/karld/internal/helpers"
	"github.com/cardinalhq/karld/internal/idgen"
	"github.com/cardinalhq/karld/internal/logctx"
)

var (
	commonAttributes attribute.Set

	meter = otel.Meter("github.com/cardinalhq/karld")

	myInstanceID int64

	commandDuration metric.Float64Histogram
	commandCounter  metric.Int64Counter
)

func init() {
	m, err := meter.Float64Histogram(
		"karld.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds of a karld command"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create command.duration histogram: %w", err))
	}
	commandDuration = m

	c, err := meter.Int64Counter(
		"karld.command.runs",
		metric.WithDescription("Number of karld commands run, by command and status"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create command.runs counter: %w", err))
	}
	commandCounter = c
}

// setupTelemetry installs the default logger and, when enabled, the
// OpenTelemetry SDK. The returned context is cancelled on SIGINT or SIGTERM
// and carries a logger tagged with the run id.
func setupTelemetry(servicename string) (context.Context, func() error, error) {
	myInstanceID = idgen.DefaultFlakeGenerator.NextID()
	runID := idgen.NewRunID()

	// ^C stops pulling new records; open files and shards are still closed.
	doneCtx, doneCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	f := func() error {
		doneCancel()
		return nil
	}

	commonAttributes = attribute.NewSet(
		attribute.Int64("instanceID", myInstanceID),
		attribute.String("service", servicename),
	)

	var opts *slog.HandlerOptions
	if helpers.DebugEnabled() {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	// Logs go to stderr; stdout is reserved for command output.
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if helpers.OTLPEnabled() {
		handler = slogmulti.Fanout(handler, otelslog.NewHandler(servicename))

		otelShutdown, err := telemetry.SetupOTelSDK(doneCtx)
		if err != nil {
			doneCancel()
			return nil, nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
		}

		if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(time.Second * 10)); err != nil {
			slog.Warn("failed to start runtime metrics", slog.Any("error", err))
		}

		if err := host.Start(); err != nil {
			slog.Warn("failed to start host metrics", slog.Any("error", err))
		}

		f = func() error {
			defer doneCancel()
			slog.Debug("Shutting down OpenTelemetry SDK")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}
	}

	slog.SetDefault(slog.New(handler).With(
		slog.String("service", servicename),
		slog.Int64("instanceID", myInstanceID),
	))
	if helpers.OTLPEnabled() {
		slog.Info("OpenTelemetry exporting enabled")
	}

	ctx := logctx.With(doneCtx, slog.String("runID", runID))
	return ctx, f, nil
}

// recordCommand reports how long a command ran and whether it failed.
func recordCommand(ctx context.Context, name string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributeSet(attribute.NewSet(
		append(commonAttributes.ToSlice(),
			attribute.String("command", name),
			attribute.String("status", status),
		)...,
	))
	commandDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	commandCounter.Add(ctx, 1, attrs)
}
