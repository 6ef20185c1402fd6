package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appschedule "staybook/internal/app/schedule"
)

// CronScheduler runs jobs with robfig/cron. Overlapping runs of the same job are
// skipped, and every run gets a timeout derived from the scheduler context.
type CronScheduler struct {
	cron       *cron.Cron
	logger     *slog.Logger
	jobTimeout time.Duration

	mu  sync.Mutex
	ctx context.Context
}

func NewCronScheduler(logger *slog.Logger, jobTimeout time.Duration) *CronScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &CronScheduler{
		cron:       cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:     logger,
		jobTimeout: jobTimeout,
		ctx:        context.Background(),
	}
}

func (s *CronScheduler) Every(spec string, name string, job appschedule.Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		parent := s.ctx
		s.mu.Unlock()
		if parent.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "duration", time.Since(start), "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	})
	return err
}

// Run starts the scheduler and blocks until ctx ends, then waits for running jobs.
func (s *CronScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

var _ appschedule.Scheduler = (*CronScheduler)(nil)
