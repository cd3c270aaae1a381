package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"promptpix/api/internal/repository"
	"promptpix/api/internal/storage"
)

// Scheduler runs the maintenance jobs: purging expired sessions and
// reclaiming storage objects that lost their record (the accepted collateral
// of a partial save failure).
type Scheduler struct {
	cron      *cron.Cron
	sessions  *repository.SessionRepository
	artifacts *repository.ArtifactRepository
	store     *storage.ObjectStore
	log       zerolog.Logger
}

func NewScheduler(
	sessions *repository.SessionRepository,
	artifacts *repository.ArtifactRepository,
	store *storage.ObjectStore,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sessions:  sessions,
		artifacts: artifacts,
		store:     store,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * * *", s.purgeExpiredSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.sweepOrphanedObjects); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight jobs to finish, up to a bound.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expired session purge failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("expired sessions purged")
	}
}

// sweepOrphanedObjects removes stored objects that no artifact record
// references. A failed record insert after a successful upload leaves one
// behind; the sweep is how it eventually disappears.
func (s *Scheduler) sweepOrphanedObjects() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	keys, err := s.store.List(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Msg("orphan sweep listing failed")
		return
	}

	var removed int
	for _, key := range keys {
		exists, err := s.artifacts.ExistsByObjectKey(ctx, key)
		if err != nil {
			s.log.Error().Err(err).Str("object_key", key).Msg("orphan check failed")
			continue
		}
		if exists {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("object_key", key).Msg("orphan removal failed")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("orphaned objects reclaimed")
	}
}
