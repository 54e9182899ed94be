package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Expirer is the part of the interview service the sweeper drives.
type Expirer interface {
	ExpireIdle(ctx context.Context, now time.Time) (int, error)
}

// IdleSweeper periodically expires sessions nobody came back to. Requests
// expire idle sessions on access anyway; the sweep only tidies up the rest.
type IdleSweeper struct {
	expirer  Expirer
	schedule string
	enabled  bool
	cron     *cron.Cron
	now      func() time.Time
}

func NewIdleSweeper(expirer Expirer, cfg *config.Config) *IdleSweeper {
	return &IdleSweeper{
		expirer:  expirer,
		schedule: cfg.Jobs.IdleSweepSpec,
		enabled:  cfg.Jobs.IdleSweepEnabled,
		cron:     cron.New(),
		now:      time.Now,
	}
}

func (s *IdleSweeper) Start() error {
	if !s.enabled {
		log.Info().Msg("Idle session sweep is disabled, skipping scheduler")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			log.Error().Err(err).Msg("Idle session sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule idle sweep: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("Idle session sweeper started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *IdleSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("Idle session sweeper stopped")
	case <-ctx.Done():
		log.Warn().Msg("Idle session sweeper did not stop in time")
	}
}

func (s *IdleSweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.expirer.ExpireIdle(ctx, s.now())
	if n > 0 {
		log.Info().Int("expired", n).Msg("Expired idle interview sessions")
	}
	return n, err
}
