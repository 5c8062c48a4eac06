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

// Package runner applies transforms to files and record batches, either
// serially or across a bounded worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned when submitting to a closed Pool.
var ErrPoolClosed = errors.New("runner: pool is closed")

// TaskPanicError is the result of a task that panicked.
type TaskPanicError struct {
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Pool runs submitted tasks with at most Size of them executing at once.
// Tasks are independent; a failing task does not affect the others.
type Pool struct {
	size int
	sem  *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool of the given size. A size of zero or less uses
// runtime.GOMAXPROCS(0).
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{size: size, sem: semaphore.NewWeighted(int64(size))}
}

// Size returns the maximum number of concurrently running tasks.
func (p *Pool) Size() int {
	return p.size
}

// Close stops accepting tasks and waits for every submitted task to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Future is the pending result of a submitted task.
type Future[R any] struct {
	done  chan struct{}
	value R
	err   error
}

// Done is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future[R]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx is done. Abandoning the wait
// does not stop the task.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

func (f *Future[R]) resolve(v R, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Task is a unit of work run by a Pool.
type Task[R any] func(ctx context.Context) (R, error)

// Submit queues task on p and returns immediately. The task starts once a
// slot is free. If ctx ends before then, the future resolves with ctx's error.
func Submit[R any](ctx context.Context, p *Pool, name string, task Task[R]) (*Future[R], error) {
	return submit(ctx, p, name, task, nil)
}

func submit[R any](ctx context.Context, p *Pool, name string, task Task[R], onDone func()) (*Future[R], error) {
	if task == nil {
		return nil, errors.New("runner: task cannot be nil")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	tasksSubmittedCounter.Add(ctx, 1)

	f := &Future[R]{done: make(chan struct{})}
	go func() {
		defer p.wg.Done()
		if onDone != nil {
			defer onDone()
		}

		if err := p.sem.Acquire(ctx, 1); err != nil {
			var zero R
			f.resolve(zero, err)
			tasksCompletedCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", "canceled")))
			return
		}
		defer p.sem.Release(1)

		v, err := runTask(ctx, name, task)
		status := "ok"
		var panicErr *TaskPanicError
		switch {
		case errors.As(err, &panicErr):
			status = "panic"
		case err != nil:
			status = "error"
		}
		tasksCompletedCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
		f.resolve(v, err)
	}()
	return f, nil
}

func runTask[R any](ctx context.Context, name string, task Task[R]) (v R, err error) {
	ctx, span := tracer.Start(ctx, "karld.runner.task",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("task", name)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			var zero R
			v = zero
			err = &TaskPanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return task(ctx)
}
