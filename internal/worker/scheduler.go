package worker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Submitter accepts jobs without blocking.
type Submitter interface {
	TrySubmit(job Job) error
}

// JobScheduler submits one job to a pool on a fixed interval.  A tick
// that finds the queue full is dropped, so a slow job never piles up
// behind itself.
type JobScheduler struct {
	Name     string
	Interval time.Duration
	Pool     Submitter
	Run      func(ctx context.Context) error
}

func NewJobScheduler(name string, interval time.Duration, pool Submitter, run func(ctx context.Context) error) *JobScheduler {
	return &JobScheduler{Name: name, Interval: interval, Pool: pool, Run: run}
}

// Start submits the job once immediately, then on every tick until ctx
// is done.
func (s *JobScheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler %s] Running every %s.", s.Name, s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.submit()
	for {
		select {
		case <-ticker.C:
			s.submit()
		case <-ctx.Done():
			log.Printf("[Scheduler %s] Shutting down.", s.Name)
			return
		}
	}
}

func (s *JobScheduler) submit() {
	job := Job{ID: uuid.NewString(), Name: s.Name, Run: s.Run}
	if err := s.Pool.TrySubmit(job); err != nil {
		log.Printf("[Scheduler %s] Skipped job %s: %v", s.Name, job.ID, err)
	}
}
