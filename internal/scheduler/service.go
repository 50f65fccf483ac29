package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/azure/last30days/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Watcher refreshes the watched topics.
type Watcher interface {
	RunWatch(ctx context.Context) error
}

const watchTimeout = 30 * time.Minute

// Service handles scheduling of watched-topic refreshes
type Service struct {
	config  *config.Config
	watcher Watcher
	cron    *cron.Cron
}

// NewService creates a new scheduler service running in the configured time zone.
func NewService(cfg *config.Config, watcher Watcher) (*Service, error) {
	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
		}
		loc = l
	}

	return &Service{
		config:  cfg,
		watcher: watcher,
		cron:    cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start begins the scheduled refreshes. It does nothing when no topics are watched.
func (s *Service) Start() error {
	if len(s.config.WatchTopics) == 0 {
		logrus.Info("No watched topics, scheduler idle")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.WatchSchedule, s.run)
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", s.config.WatchSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q for %d topics", s.config.WatchSchedule, len(s.config.WatchTopics))
	return nil
}

func (s *Service) run() {
	logrus.Info("Starting scheduled watch run")

	ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
	defer cancel()

	if err := s.watcher.RunWatch(ctx); err != nil {
		logrus.Errorf("Scheduled watch run failed: %v", err)
	}
}

// Entries returns the number of scheduled jobs.
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
