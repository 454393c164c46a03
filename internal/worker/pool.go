// Package worker runs background jobs: a fixed pool of goroutines fed by
// a buffered channel, and a ticker that submits scheduled jobs to it.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Job is one unit of background work.
type Job struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// ErrQueueFull is returned by TrySubmit when every slot is taken.
var ErrQueueFull = errors.New("worker queue full")

// ErrPoolStopped is returned once the pool has shut down.
var ErrPoolStopped = errors.New("worker pool stopped")

type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job

	mu      sync.RWMutex
	stopped bool
}

func NewWorkingPool(numWorkers, queueSize int) *WorkingPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// TrySubmit queues job without blocking.
func (p *WorkingPool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobChan <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the workers until ctx is done, then waits for them to
// finish the job in hand.  It signals wg when the pool has stopped.
func (p *WorkingPool) Start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	var workerWg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()
	log.Println("[WorkingPool] Shutdown signaled. Closing job channel.")
	p.mu.Lock()
	p.stopped = true
	close(p.jobChan)
	p.mu.Unlock()

	workerWg.Wait()
	log.Println("[WorkingPool] All workers stopped.")
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				return
			}
			p.safeExecution(ctx, job, id)
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkingPool-Worker %d] Panic recovered in job %s (%s): %v", workerID, job.Name, job.ID, r)
			err = errors.New("job panicked")
		}
	}()
	if err = job.Run(ctx); err != nil {
		log.Printf("[WorkingPool-Worker %d] Job %s (%s) failed: %v", workerID, job.Name, job.ID, err)
	}
	return err
}
