package similarity

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is a unit of work executed by the pool.
type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs comparison jobs on a fixed set of goroutines sized from
// the machine's CPU count, with a quarter reserved for everything else.
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWorkerPool creates and starts a CPU-sized worker pool.
func NewWorkerPool(ctx context.Context) *WorkerPool {
	totalCPU := runtime.NumCPU()
	reserve := max(1, totalCPU/4)
	size := max(1, totalCPU-reserve)

	poolCtx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	log.Info().
		Int("totalCPU", totalCPU).
		Int("workers", size).
		Msg("Worker pool initialized")

	for i := 0; i < size; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Error().Err(err).Msg("Comparison job failed")
			}
		}
	}
}

// Submit queues a job, blocking while the queue is full.
func (p *WorkerPool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close stops the pool and waits for in-flight jobs.
func (p *WorkerPool) Close() {
	close(p.jobQueue)
	p.cancel()
	p.wg.Wait()
}

// Size returns the worker count.
func (p *WorkerPool) Size() int { return p.workers }

// CompareJob runs one pairwise comparison on the pool and delivers the
// outcome on exactly one of its two channels.
type CompareJob struct {
	Engine *Engine
	A, B   Submission
	Result chan<- *Report
	Err    chan<- error
}

// Execute implements Job.
func (j *CompareJob) Execute(ctx context.Context) error {
	report, err := j.Engine.Compare(ctx, j.A, j.B)
	if err != nil {
		select {
		case j.Err <- err:
		case <-ctx.Done():
		}
		return err
	}
	select {
	case j.Result <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
