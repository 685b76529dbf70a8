// Package worker runs the periodic tick that dispenses pending calls to the
// executor: every 30 seconds it asks the scheduler for due calls and fires
// each one, logging failures without aborting the batch.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// SchedulerAPI is the subset of *scheduler.Scheduler the worker needs.
type SchedulerAPI interface {
	GetPendingCalls(ctx context.Context, limit, maxConcurrent int) ([]*domain.ScheduledCall, error)
}

// ExecutorAPI is the subset of *executor.Executor the worker needs.
type ExecutorAPI interface {
	Execute(ctx context.Context, sc *domain.ScheduledCall, lead *domain.Lead) (*domain.CallSession, error)
}

// LeadStore resolves the Lead a ScheduledCall targets.
type LeadStore interface {
	GetLead(ctx context.Context, id int64) (*domain.Lead, error)
}

// Worker ticks on a cron schedule, dispensing pending calls to the executor.
type Worker struct {
	scheduler     SchedulerAPI
	executor      ExecutorAPI
	leads         LeadStore
	maxConcurrent int
	fetchLimit    int

	cron *cron.Cron
}

// New builds a Worker. fetchLimit bounds how many calls a single tick will
// pull from the scheduler; maxConcurrent is the service-wide concurrency cap.
func New(scheduler SchedulerAPI, executor ExecutorAPI, leads LeadStore, maxConcurrent, fetchLimit int) *Worker {
	return &Worker{
		scheduler:     scheduler,
		executor:      executor,
		leads:         leads,
		maxConcurrent: maxConcurrent,
		fetchLimit:    fetchLimit,
		cron:          cron.New(),
	}
}

// Start schedules the 30-second tick and begins running it in the
// background. Call Stop to halt it.
func (w *Worker) Start() error {
	logger := observability.GetLogger()
	_, err := w.cron.AddFunc("@every 30s", func() {
		w.processPendingCalls(context.Background())
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	logger.Info().Msg("worker: campaign worker started")
	return nil
}

// Stop halts the tick, waiting for any in-flight run to finish.
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	observability.GetLogger().Info().Msg("worker: campaign worker stopped")
}

func (w *Worker) processPendingCalls(ctx context.Context) {
	logger := observability.GetLogger()

	pending, err := w.scheduler.GetPendingCalls(ctx, w.fetchLimit, w.maxConcurrent)
	if err != nil {
		logger.Error().Err(err).Msg("worker: failed to fetch pending calls")
		return
	}
	if len(pending) == 0 {
		logger.Debug().Msg("worker: no pending calls")
		return
	}

	logger.Info().Int("count", len(pending)).Msg("worker: processing pending calls")

	for _, sc := range pending {
		lead, err := w.leads.GetLead(ctx, sc.LeadID)
		if err != nil {
			logger.Error().Err(err).Int64("scheduled_call_id", sc.ID).Msg("worker: failed to load lead")
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		session, err := w.executor.Execute(callCtx, sc, lead)
		cancel()

		if err != nil {
			logger.Error().Err(err).Int64("scheduled_call_id", sc.ID).Msg("worker: call execution failed")
			continue
		}

		logger.Info().
			Str("provider_call_id", session.ProviderCallID).
			Int64("scheduled_call_id", sc.ID).
			Msg("worker: call executed")
	}
}
