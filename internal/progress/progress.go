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

// Package progress reports how far a long run has come at a fixed interval.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cardinalhq/karld/internal/logctx"
)

// ReportFunc is called with the time elapsed since the reporter started.
type ReportFunc func(ctx context.Context, elapsed time.Duration)

// Reporter calls a ReportFunc every interval until stopped, and once more
// when stopped.
type Reporter struct {
	report   ReportFunc
	interval time.Duration

	start  time.Time
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New returns a Reporter. An interval <= 0 disables the periodic reports;
// the final report on Stop is still made.
func New(interval time.Duration, report ReportFunc) *Reporter {
	return &Reporter{report: report, interval: interval}
}

// Start begins reporting in a goroutine.
func (r *Reporter) Start(ctx context.Context) {
	r.start = time.Now()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx, time.Since(r.start))
		}
	}
}

// Stop ends the periodic reports, waits for an in-flight report and makes
// the final one. It is safe to call more than once.
func (r *Reporter) Stop(ctx context.Context) {
	r.once.Do(func() {
		if r.cancel == nil {
			return
		}
		r.cancel()
		<-r.done
		r.report(ctx, time.Since(r.start))
	})
}

// Counters tracks files and records handled by a run. It is safe for
// concurrent use by pool workers.
type Counters struct {
	Files   atomic.Int64
	Records atomic.Int64
}

// LogReport returns a ReportFunc that logs c at info level.
func LogReport(name string, c *Counters) ReportFunc {
	return func(ctx context.Context, elapsed time.Duration) {
		records := c.Records.Load()
		var rate float64
		if secs := elapsed.Seconds(); secs > 0 {
			rate = float64(records) / secs
		}
		logctx.FromContext(ctx).Info("Progress",
			slog.String("run", name),
			slog.Int64("files", c.Files.Load()),
			slog.Int64("records", records),
			slog.Float64("recordsPerSecond", rate),
			slog.Duration("elapsed", elapsed))
	}
}
