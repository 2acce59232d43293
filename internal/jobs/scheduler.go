package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

// Scheduler runs periodic maintenance against the store.
type Scheduler struct {
	cron  *cron.Cron
	store repository.Store
	cfg   config.JobsConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewScheduler(store repository.Store, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "jobs").Logger(),
		now:   time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.CleanupSchedule == "" {
		s.log.Info().Msg("cleanup schedule empty, maintenance jobs disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.CleanupSchedule, s.purgeVerifications); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeVerifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.PurgeVerifications(ctx); err != nil {
		s.log.Error().Err(err).Msg("purge expired verifications failed")
	}
}

// PurgeVerifications deletes codes that expired more than the configured
// grace period ago. Codes inside the grace period still produce an
// "expired" answer instead of "invalid".
func (s *Scheduler) PurgeVerifications(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.VerificationGrace)
	n, err := s.store.Verifications().PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("expired verifications purged")
	}
	return n, nil
}
