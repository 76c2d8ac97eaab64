package sessions

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stewardhq/steward/pkg/observability"
)

// sweepTimeout bounds one sweep run so a stuck database cannot pile up
// overlapping deletes.
const sweepTimeout = 30 * time.Second

// Sweeper periodically removes expired session rows. Reads already treat
// expired rows as gone, so the sweep only reclaims storage.
type Sweeper struct {
	store    *Store
	logger   *observability.Logger
	schedule string
	cron     *cron.Cron
}

// NewSweeper creates a sweeper on the given cron schedule, for example
// "@every 15m".
func NewSweeper(store *Store, logger *observability.Logger, schedule string) *Sweeper {
	if schedule == "" {
		schedule = "@every 15m"
	}
	return &Sweeper{store: store, logger: logger, schedule: schedule}
}

// Start schedules the sweep job. It returns an error only when the
// schedule expression does not parse.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("session sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("session sweeper stopped")
}

func (s *Sweeper) sweep() {
	defer observability.RecoverPanic(s.logger, "session sweep")

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("session sweep failed")
		return
	}
	if n > 0 {
		s.logger.WithField("deleted", n).Info("expired sessions removed")
	}
}
