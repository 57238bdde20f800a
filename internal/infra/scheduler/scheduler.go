package scheduler

import (
	"context"
	"fmt"
	"time"

	"cf_solved_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner runs one monitor pass over the given guilds.
type CycleRunner interface {
	RunCycle(ctx context.Context, guildIDs []string) app.CycleStats
}

// GuildSource lists the guilds the bot currently belongs to.
type GuildSource func() []string

type MonitorScheduler struct {
	cronEngine *cron.Cron
	monitor    CycleRunner
	guilds     GuildSource
	logger     *logrus.Entry
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewMonitorScheduler(
	monitor CycleRunner,
	guilds GuildSource,
	logger *logrus.Entry,
	interval time.Duration, // e.g. 60s
) *MonitorScheduler {
	cronLogger := cron.PrintfLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())
	return &MonitorScheduler{
		// A cycle still running when the next tick fires is not overlapped.
		cronEngine: cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		monitor:    monitor,
		guilds:     guilds,
		logger:     logger,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start registers the polling job and starts the cron engine.
func (s *MonitorScheduler) Start() error {
	s.logger.WithField("interval", s.interval.String()).Info("Starting monitor scheduler...")

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cronEngine.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("could not add monitor cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Monitor scheduler started.")
	return nil
}

func (s *MonitorScheduler) runOnce() {
	// Bound the whole cycle; each request also has its own client timeout.
	ctx, cancel := context.WithTimeout(s.ctx, 10*s.interval)
	defer cancel()

	guildIDs := s.guilds()
	if len(guildIDs) == 0 {
		s.logger.Debug("No guilds available, skipping monitor cycle.")
		return
	}
	s.monitor.RunCycle(ctx, guildIDs)
}

// Stop cancels a running cycle and waits for it to return.
func (s *MonitorScheduler) Stop() {
	s.logger.Info("Stopping monitor scheduler...")
	s.cancel()
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Monitor scheduler gracefully stopped.")
}
