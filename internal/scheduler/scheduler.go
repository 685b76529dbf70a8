// Package scheduler enqueues one ScheduledCall per unscheduled lead in a
// campaign, hands out pending calls respecting calling hours and concurrency,
// and re-queues failures with a reason-specific delay.
package scheduler

import (
	"context"
	"time"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// Store is the subset of durable persistence the scheduler needs.
type Store interface {
	UnscheduledLeads(ctx context.Context, campaignID int64) ([]*domain.Lead, error)
	GetCampaign(ctx context.Context, campaignID int64) (*domain.Campaign, error)
	CreateScheduledCalls(ctx context.Context, calls []*domain.ScheduledCall) error
	CountCalling(ctx context.Context) (int, error)
	PendingCallsDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledCall, error)
	GetScheduledCall(ctx context.Context, id int64) (*domain.ScheduledCall, error)
	UpdateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error
}

// Scheduler implements enqueue/dispense/retry against a Store.
type Scheduler struct {
	store Store
	// callingHoursStart/End are the defaults used when deciding whether the
	// wall clock is inside calling hours for dispensing; a campaign's own
	// hours govern where its calls land when first enqueued.
	callingHoursStart int
	callingHoursEnd   int
}

// New builds a Scheduler. callingHoursStart/End are the service-wide defaults
// consulted by GetPendingCalls (a campaign's own hours are used at enqueue
// time, per-call).
func New(store Store, callingHoursStart, callingHoursEnd int) *Scheduler {
	return &Scheduler{store: store, callingHoursStart: callingHoursStart, callingHoursEnd: callingHoursEnd}
}

// ScheduleCampaignCalls creates one pending ScheduledCall for every lead in
// campaignID that does not already have one, returning the count created.
func (s *Scheduler) ScheduleCampaignCalls(ctx context.Context, campaignID int64) (int, error) {
	logger := observability.GetLogger()

	leads, err := s.store.UnscheduledLeads(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if len(leads) == 0 {
		logger.Info().Int64("campaign_id", campaignID).Msg("scheduler: no new leads to schedule")
		return 0, nil
	}

	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	calls := make([]*domain.ScheduledCall, 0, len(leads))
	for _, lead := range leads {
		target := nextAvailableSlot(now, campaign.CallingHoursStart, campaign.CallingHoursEnd)
		calls = append(calls, &domain.ScheduledCall{
			CampaignID:   campaignID,
			LeadID:       lead.ID,
			Status:       domain.ScheduledCallPending,
			ScheduledFor: target,
			MaxAttempts:  campaign.MaxAttempts,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := s.store.CreateScheduledCalls(ctx, calls); err != nil {
		return 0, err
	}

	logger.Info().Int64("campaign_id", campaignID).Int("count", len(calls)).Msg("scheduler: campaign calls scheduled")
	return len(calls), nil
}

// nextAvailableSlot returns the next time at or after from that falls inside
// [callingHoursStart, callingHoursEnd) and is not a Sunday.
func nextAvailableSlot(from time.Time, callingHoursStart, callingHoursEnd int) time.Time {
	target := from

	switch {
	case target.Hour() < callingHoursStart:
		target = atHour(target, callingHoursStart)
	case target.Hour() >= callingHoursEnd:
		target = atHour(target.AddDate(0, 0, 1), callingHoursStart)
	}

	for target.Weekday() == time.Sunday {
		target = atHour(target.AddDate(0, 0, 1), callingHoursStart)
	}

	return target
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// GetPendingCalls returns up to limit ScheduledCalls that are due, ordered by
// ScheduledFor ascending, bounded by maxConcurrent minus calls already in
// progress. Returns empty outside calling hours or on Sunday.
func (s *Scheduler) GetPendingCalls(ctx context.Context, limit, maxConcurrent int) ([]*domain.ScheduledCall, error) {
	logger := observability.GetLogger()
	now := time.Now()

	if now.Hour() < s.callingHoursStart || now.Hour() >= s.callingHoursEnd {
		logger.Debug().Int("current_hour", now.Hour()).Msg("scheduler: outside calling hours")
		return nil, nil
	}
	if now.Weekday() == time.Sunday {
		logger.Debug().Msg("scheduler: sunday, no calls")
		return nil, nil
	}

	activeCount, err := s.store.CountCalling(ctx)
	if err != nil {
		return nil, err
	}
	if activeCount >= maxConcurrent {
		logger.Debug().Int("active", activeCount).Int("max", maxConcurrent).Msg("scheduler: max concurrent calls reached")
		return nil, nil
	}

	availableSlots := maxConcurrent - activeCount
	fetchLimit := limit
	if availableSlots < fetchLimit {
		fetchLimit = availableSlots
	}
	if fetchLimit <= 0 {
		return nil, nil
	}

	return s.store.PendingCallsDue(ctx, now, fetchLimit)
}

// ScheduleRetry increments the attempt counter on scheduledCallID and either
// requeues it for a later slot or marks it terminally exhausted, depending on
// MaxAttempts. delay is how long to wait before the retry window opens.
func (s *Scheduler) ScheduleRetry(ctx context.Context, scheduledCallID int64, reason domain.FailureReason, delay time.Duration) (*domain.ScheduledCall, error) {
	logger := observability.GetLogger()

	sc, err := s.store.GetScheduledCall(ctx, scheduledCallID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, nil
	}

	now := time.Now()
	if sc.Status != domain.ScheduledCallFailed {
		if err := sc.Transition(domain.ScheduledCallFailed); err != nil {
			return nil, err
		}
	}
	sc.Attempts++
	sc.LastFailure = reason

	if sc.Attempts >= sc.MaxAttempts {
		if err := sc.Transition(domain.ScheduledCallMaxRetriesReached); err != nil {
			return nil, err
		}
		if err := s.store.UpdateScheduledCall(ctx, sc); err != nil {
			return nil, err
		}
		logger.Info().Int64("scheduled_call_id", sc.ID).Int("attempts", sc.Attempts).Msg("scheduler: max retries reached")
		return sc, nil
	}

	if err := sc.Transition(domain.ScheduledCallPending); err != nil {
		return nil, err
	}
	sc.ScheduledFor = nextAvailableSlot(now.Add(delay), s.callingHoursStart, s.callingHoursEnd)

	if err := s.store.UpdateScheduledCall(ctx, sc); err != nil {
		return nil, err
	}

	logger.Info().
		Int64("scheduled_call_id", sc.ID).
		Int("attempt", sc.Attempts).
		Time("retry_time", sc.ScheduledFor).
		Msg("scheduler: retry scheduled")

	return sc, nil
}
