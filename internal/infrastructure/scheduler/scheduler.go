package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"w9-search/internal/config"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/utils/platformerrors"
)

const (
	DefaultModelSyncInterval = 60 // in minutes
	DefaultLimitSyncInterval = 30 // in minutes
	CronJobTimeout           = 10 * time.Minute
)

// ModelSyncer refreshes the model catalog from the upstream providers.
type ModelSyncer interface {
	RefreshCatalog(ctx context.Context) error
}

// LimitSyncer reconciles the rate gate with provider-reported budgets.
type LimitSyncer interface {
	SyncLimits(ctx context.Context) error
}

// Scheduler runs the periodic model and limit sync jobs.
type Scheduler struct {
	ctab         *crontab.Crontab
	cfg          *config.Config
	modelSyncer  ModelSyncer
	limitSyncers []LimitSyncer
}

func New(cfg *config.Config, modelSyncer ModelSyncer, limitSyncers ...LimitSyncer) *Scheduler {
	return &Scheduler{
		ctab:         crontab.New(),
		cfg:          cfg,
		modelSyncer:  modelSyncer,
		limitSyncers: limitSyncers,
	}
}

// Run executes both jobs once at startup, schedules them, and blocks until
// the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.GetLogger()

	// execute once on server start
	s.syncModels(ctx)
	s.syncLimits(ctx)

	if s.cfg.ModelSyncEnabled {
		interval := s.cfg.ModelSyncIntervalMinutes
		if interval <= 0 {
			interval = DefaultModelSyncInterval
		}

		cronExpr := fmt.Sprintf("*/%d * * * *", interval)
		if err := s.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			s.syncModels(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add model sync job")
		}
		log.Info().Msgf("model sync scheduled: every %d minute(s)", interval)
	}

	limitInterval := s.cfg.LimitSyncIntervalMinutes
	if limitInterval <= 0 {
		limitInterval = DefaultLimitSyncInterval
	}
	if err := s.ctab.AddJob(fmt.Sprintf("*/%d * * * *", limitInterval), func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		s.syncLimits(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add limit sync job")
	}
	log.Info().Msgf("limit sync scheduled: every %d minute(s)", limitInterval)

	<-ctx.Done()
	s.ctab.Shutdown()
	return nil
}

func (s *Scheduler) syncModels(ctx context.Context) {
	log := logger.GetLogger()

	if s.modelSyncer == nil {
		return
	}
	if err := s.modelSyncer.RefreshCatalog(ctx); err != nil {
		log.Error().Err(err).Msg("model catalog sync failed")
	}
}

func (s *Scheduler) syncLimits(ctx context.Context) {
	log := logger.GetLogger()

	for _, syncer := range s.limitSyncers {
		if syncer == nil {
			continue
		}
		if err := syncer.SyncLimits(ctx); err != nil {
			log.Error().Err(err).Msg("limit sync failed")
		}
	}
}
