package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const promoteTimeout = 30 * time.Second

// PublishScheduler periodically promotes scheduled content inside the API process.
type PublishScheduler struct {
	cron    *cron.Cron
	service PublishService
	spec    string
	logger  zerolog.Logger
}

// NewPublishScheduler builds a scheduler running on the given cron spec (e.g. "@every 1m").
func NewPublishScheduler(service PublishService, spec string, logger zerolog.Logger) *PublishScheduler {
	schedLogger := logger.With().Str("component", "publish_scheduler").Logger()
	return &PublishScheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		service: service,
		spec:    spec,
		logger:  schedLogger,
	}
}

// Start registers the promotion job and runs it until ctx is cancelled. It returns an error
// when the spec cannot be parsed.
func (s *PublishScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("publish scheduler started")

	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
		s.logger.Info().Msg("publish scheduler stopped")
	}()
	return nil
}

// RunOnce promotes every due node once.
func (s *PublishScheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, promoteTimeout)
	defer cancel()

	if _, err := s.service.PromoteDue(runCtx); err != nil {
		s.logger.Error().Err(err).Msg("failed to promote scheduled content")
	}
}
