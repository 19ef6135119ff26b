package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"json4ai/internal/tasks"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
	log   zerolog.Logger
}

func NewScheduler(queue Enqueuer, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 */15 * * * *", s.enqueueAdminSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.enqueueUsagePrune); err != nil { // daily, off-peak
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueAdminSweep() {
	s.enqueueTask(tasks.TypeAdminSessionSweep)
}

func (s *Scheduler) enqueueUsagePrune() {
	s.enqueueTask(tasks.TypeUsagePrune)
}

func (s *Scheduler) enqueueTask(taskType string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.queue.Enqueue(ctx, taskType, map[string]any{
		"scheduledAt": time.Now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("type", taskType).Msg("enqueue scheduled task failed")
		return
	}
	s.log.Debug().Str("type", taskType).Str("task_id", id).Msg("scheduled task enqueued")
}
