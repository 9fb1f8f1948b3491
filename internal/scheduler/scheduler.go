package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Pruner drops expired cache entries and reports how many it removed.
type Pruner interface {
	PruneCache() int
}

// Scheduler periodically prunes the weather cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	interval  time.Duration
}

// New creates a new Scheduler.
func New(pruner Pruner, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		pruner:    pruner,
		interval:  interval,
	}
}

// Start schedules the prune job and starts the underlying scheduler.
// A non-positive interval disables the job.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: prune interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	if n := s.pruner.PruneCache(); n > 0 {
		log.Printf("scheduler: pruned %d expired weather entries", n)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
