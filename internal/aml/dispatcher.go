package aml

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher is the bounded in-process work queue the wallet and
// game-session callers enqueue onto once their own commit has succeeded.
// Analysis runs off the request path entirely: a full queue drops the job
// (logged) rather than blocking or failing the caller, since a transaction
// that later turns out to need AML attention is still caught by the repair
// scan in internal/aml/repair.
type Dispatcher struct {
	engine  *Engine
	jobs    chan Input
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher builds a Dispatcher with a bounded queue of queueSize jobs
// serviced by workers goroutines.
func NewDispatcher(engine *Engine, queueSize, workers int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{engine: engine, jobs: make(chan Input, queueSize), workers: workers, logger: logger}
}

// Start spawns the worker pool. It returns immediately; workers run until
// ctx is canceled or the queue is closed. Cancellation stops them without
// draining jobs still in the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-d.jobs:
			if !ok {
				return
			}
			d.run(in)
		}
	}
}

func (d *Dispatcher) run(in Input) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := d.engine.Analyze(ctx, in); err != nil {
		d.logger.Error("aml analysis failed", zap.Error(err), zap.String("transaction_id", in.Transaction.ID.String()))
	}
}

// Enqueue submits in for analysis without blocking the caller. It reports
// false (and logs) if the queue is currently full.
func (d *Dispatcher) Enqueue(in Input) bool {
	select {
	case d.jobs <- in:
		return true
	default:
		d.logger.Warn("aml dispatch queue full, dropping job for repair scan to pick up",
			zap.String("transaction_id", in.Transaction.ID.String()))
		return false
	}
}

// Stop closes the queue and waits for in-flight workers to finish.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}
