package scheduler

import (
	"context"
	"fmt"
	"time"

	"daily365_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PassRunner is the work the scheduler triggers on every tick.
type PassRunner interface {
	RunPass(ctx context.Context) (app.PassSummary, error)
}

type DeliveryScheduler struct {
	cronEngine  *cron.Cron
	runner      PassRunner
	logger      *logrus.Entry
	cronSpec    string
	passTimeout time.Duration
}

// NewDeliveryScheduler builds a scheduler whose ticks fire in loc. A tick that arrives while
// the previous pass is still running is skipped.
func NewDeliveryScheduler(
	runner PassRunner,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpec string, // e.g. "* * * * *" (every minute, on the minute)
	passTimeout time.Duration,
) *DeliveryScheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.VerbosePrintfLogger(logger.WithField("subsystem", "cron"))
	return &DeliveryScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cron.DiscardLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:      runner,
		logger:      logger,
		cronSpec:    cronSpec,
		passTimeout: passTimeout,
	}
}

func (s *DeliveryScheduler) Start() error {
	s.logger.Info("Starting delivery scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add delivery cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Delivery scheduler started")
	return nil
}

// RunOnce runs a single pass under the configured pass timeout.
func (s *DeliveryScheduler) RunOnce(ctx context.Context) {
	if s.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.passTimeout)
		defer cancel()
	}
	if _, err := s.runner.RunPass(ctx); err != nil {
		s.logger.WithError(err).Error("Delivery pass failed")
	}
}

func (s *DeliveryScheduler) Stop() {
	s.logger.Info("Stopping delivery scheduler...")
	ctx := s.cronEngine.Stop() // Stops new ticks, waits for the running pass.
	<-ctx.Done()
	s.logger.Info("Delivery scheduler gracefully stopped")
}
