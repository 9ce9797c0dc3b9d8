package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config sizes the dispatcher.
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// OnFailure, when set, is called from the error-draining goroutine after
	// the failure is logged.
	OnFailure func(Failure)
}

// Job is one unit of fire-and-forget work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Failure reports a job that returned an error.
type Failure struct {
	Job string
	Err error
}

// Dispatcher runs jobs on a fixed pool of goroutines fed by a bounded queue.
// Enqueue never blocks: when the queue is full the job is dropped and counted.
type Dispatcher struct {
	cfg       Config
	logger    *slog.Logger
	jobs      chan Job
	errs      chan Failure
	done      chan struct{}
	// mu orders Enqueue's send before Close marks the dispatcher closed.
	mu        sync.RWMutex
	wg        sync.WaitGroup
	errWG     sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan Job, cfg.QueueSize),
		errs:   make(chan Failure, cfg.QueueSize),
		done:   make(chan struct{}),
	}

	d.errWG.Add(1)
	go d.drainErrors()

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobs:
			d.execute(job)
		case <-d.done:
			for {
				select {
				case job := <-d.jobs:
					d.execute(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.JobTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Run(ctx)
	}()
	if err != nil {
		d.errs <- Failure{Job: job.Name, Err: err}
	}
}

func (d *Dispatcher) drainErrors() {
	defer d.errWG.Done()
	for f := range d.errs {
		d.logger.Error("background job failed", "job", f.Job, "err", f.Err)
		if d.cfg.OnFailure != nil {
			d.cfg.OnFailure(f)
		}
	}
}

// Enqueue submits job and reports whether it was accepted. An accepted job
// runs even when Close is called concurrently.
func (d *Dispatcher) Enqueue(job Job) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed.Load() {
		return false
	}
	select {
	case d.jobs <- job:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("background queue full, job dropped", "job", job.Name, "dropped_total", d.dropped.Load())
		return false
	}
}

// Close stops accepting jobs, runs everything already queued, and waits for
// the failure log to flush.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed.Store(true)
		close(d.done)
		d.mu.Unlock()

		d.wg.Wait()
		close(d.errs)
		d.errWG.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
