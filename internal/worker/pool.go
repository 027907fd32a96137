package worker

import (
	"context"
	"sync"

	"github.com/martinsuchenak/nsotctl/internal/log"
)

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	maxWorkers int
	jobs       chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// Job represents a unit of work
type Job struct {
	ID      string
	Handler func(context.Context) error
	Result  chan error
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		maxWorkers: maxWorkers,
		jobs:       make(chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the workers
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Debug("Worker pool started", "workers", p.maxWorkers)
}

// Stop closes the queue, waits for queued jobs and releases the context.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}

// Cancel aborts running jobs through their context.
func (p *Pool) Cancel() {
	p.cancel()
}

// Submit submits a job to the pool
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		log.Debug("Worker executing job", "worker_id", id, "job_id", job.ID)

		var err error
		if ctxErr := p.ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = job.Handler(p.ctx)
		}
		if job.Result != nil {
			job.Result <- err
		}
	}
}
