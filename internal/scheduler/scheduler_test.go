package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/propertyhub/voice-agent/internal/domain"
)

type fakeStore struct {
	leads          []*domain.Lead
	campaign       *domain.Campaign
	created        []*domain.ScheduledCall
	callingCount   int
	pendingDue     []*domain.ScheduledCall
	byID           map[int64]*domain.ScheduledCall
	updated        []*domain.ScheduledCall
}

func (f *fakeStore) UnscheduledLeads(ctx context.Context, campaignID int64) ([]*domain.Lead, error) {
	return f.leads, nil
}

func (f *fakeStore) GetCampaign(ctx context.Context, campaignID int64) (*domain.Campaign, error) {
	return f.campaign, nil
}

func (f *fakeStore) CreateScheduledCalls(ctx context.Context, calls []*domain.ScheduledCall) error {
	f.created = append(f.created, calls...)
	return nil
}

func (f *fakeStore) CountCalling(ctx context.Context) (int, error) {
	return f.callingCount, nil
}

func (f *fakeStore) PendingCallsDue(ctx context.Context, before time.Time, limit int) ([]*domain.ScheduledCall, error) {
	if limit < len(f.pendingDue) {
		return f.pendingDue[:limit], nil
	}
	return f.pendingDue, nil
}

func (f *fakeStore) GetScheduledCall(ctx context.Context, id int64) (*domain.ScheduledCall, error) {
	if f.byID == nil {
		return nil, nil
	}
	return f.byID[id], nil
}

func (f *fakeStore) UpdateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error {
	f.updated = append(f.updated, sc)
	if f.byID != nil {
		f.byID[sc.ID] = sc
	}
	return nil
}

func TestNextAvailableSlot_BeforeHours(t *testing.T) {
	from := time.Date(2026, 7, 29, 7, 30, 0, 0, time.UTC) // Wednesday
	got := nextAvailableSlot(from, 10, 19)
	want := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextAvailableSlot_AfterHours(t *testing.T) {
	from := time.Date(2026, 7, 29, 20, 0, 0, 0, time.UTC) // Wednesday
	got := nextAvailableSlot(from, 10, 19)
	want := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextAvailableSlot_WithinHoursUnchanged(t *testing.T) {
	from := time.Date(2026, 7, 29, 14, 15, 0, 0, time.UTC)
	got := nextAvailableSlot(from, 10, 19)
	if !got.Equal(from) {
		t.Errorf("expected time to be left unchanged at %v, got %v", from, got)
	}
}

func TestNextAvailableSlot_SkipsSunday(t *testing.T) {
	// 2026-08-01 is a Saturday; after-hours on Saturday rolls to Sunday,
	// which must then skip forward to Monday at the start of the window.
	from := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	got := nextAvailableSlot(from, 10, 19)
	want := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) // Monday
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got.Weekday() == time.Sunday {
		t.Error("must never land on a Sunday")
	}
}

func TestScheduleCampaignCalls_CreatesOnePerLead(t *testing.T) {
	store := &fakeStore{
		leads: []*domain.Lead{
			{ID: 1, Name: "Asha"},
			{ID: 2, Name: "Vikram"},
		},
		campaign: &domain.Campaign{ID: 9, CallingHoursStart: 10, CallingHoursEnd: 19, MaxAttempts: 3},
	}
	s := New(store, 10, 19)

	count, err := s.ScheduleCampaignCalls(context.Background(), 9)
	if err != nil {
		t.Fatalf("ScheduleCampaignCalls failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 scheduled calls, got %d", count)
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 calls persisted, got %d", len(store.created))
	}
	for _, sc := range store.created {
		if sc.Status != domain.ScheduledCallPending {
			t.Errorf("expected pending status, got %s", sc.Status)
		}
		if sc.MaxAttempts != 3 {
			t.Errorf("expected MaxAttempts copied from campaign, got %d", sc.MaxAttempts)
		}
	}
}

func TestScheduleCampaignCalls_NoLeadsReturnsZero(t *testing.T) {
	store := &fakeStore{campaign: &domain.Campaign{ID: 9}}
	s := New(store, 10, 19)

	count, err := s.ScheduleCampaignCalls(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestGetPendingCalls_RespectsMaxConcurrent(t *testing.T) {
	store := &fakeStore{
		callingCount: 8,
		pendingDue: []*domain.ScheduledCall{
			{ID: 1}, {ID: 2}, {ID: 3},
		},
	}
	s := New(store, 0, 24) // always within calling hours for this assertion

	calls, err := s.GetPendingCalls(context.Background(), 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("expected 2 calls (10 max - 8 active), got %d", len(calls))
	}
}

func TestGetPendingCalls_ZeroAvailableSlotsReturnsEmpty(t *testing.T) {
	store := &fakeStore{callingCount: 10, pendingDue: []*domain.ScheduledCall{{ID: 1}}}
	s := New(store, 0, 24)

	calls, err := s.GetPendingCalls(context.Background(), 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("expected no calls when max concurrent is already reached, got %d", len(calls))
	}
}

func TestScheduleRetry_RequeuesWithDelay(t *testing.T) {
	sc := &domain.ScheduledCall{ID: 5, Status: domain.ScheduledCallCalling, Attempts: 0, MaxAttempts: 3}
	store := &fakeStore{byID: map[int64]*domain.ScheduledCall{5: sc}}
	s := New(store, 10, 19)

	updated, err := s.ScheduleRetry(context.Background(), 5, domain.FailureNoAnswer, 2*time.Hour)
	if err != nil {
		t.Fatalf("ScheduleRetry failed: %v", err)
	}
	if updated.Status != domain.ScheduledCallPending {
		t.Errorf("expected pending, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Errorf("expected attempts=1, got %d", updated.Attempts)
	}
	if updated.LastFailure != domain.FailureNoAnswer {
		t.Errorf("expected last failure no_answer, got %s", updated.LastFailure)
	}
}

func TestScheduleRetry_ExhaustsAfterMaxAttempts(t *testing.T) {
	sc := &domain.ScheduledCall{ID: 6, Status: domain.ScheduledCallCalling, Attempts: 2, MaxAttempts: 3}
	store := &fakeStore{byID: map[int64]*domain.ScheduledCall{6: sc}}
	s := New(store, 10, 19)

	updated, err := s.ScheduleRetry(context.Background(), 6, domain.FailureFailed, time.Hour)
	if err != nil {
		t.Fatalf("ScheduleRetry failed: %v", err)
	}
	if updated.Status != domain.ScheduledCallMaxRetriesReached {
		t.Errorf("expected max_retries_reached, got %s", updated.Status)
	}
}
