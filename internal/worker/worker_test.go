package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/propertyhub/voice-agent/internal/domain"
)

type fakeScheduler struct {
	pending []*domain.ScheduledCall
	err     error
}

func (f *fakeScheduler) GetPendingCalls(ctx context.Context, limit, maxConcurrent int) ([]*domain.ScheduledCall, error) {
	return f.pending, f.err
}

type fakeExecutor struct {
	executed []int64
	failFor  map[int64]bool
}

func (f *fakeExecutor) Execute(ctx context.Context, sc *domain.ScheduledCall, lead *domain.Lead) (*domain.CallSession, error) {
	if f.failFor[sc.ID] {
		return nil, errors.New("telephony provider rejected the call")
	}
	f.executed = append(f.executed, sc.ID)
	return &domain.CallSession{ID: sc.ID, ProviderCallID: "CA" + lead.Phone}, nil
}

type fakeLeads struct {
	byID map[int64]*domain.Lead
}

func (f *fakeLeads) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	return f.byID[id], nil
}

func TestWorker_ProcessPendingCalls_ExecutesEach(t *testing.T) {
	sched := &fakeScheduler{pending: []*domain.ScheduledCall{
		{ID: 1, LeadID: 10},
		{ID: 2, LeadID: 11},
	}}
	exec := &fakeExecutor{failFor: map[int64]bool{}}
	leads := &fakeLeads{byID: map[int64]*domain.Lead{
		10: {ID: 10, Phone: "+911111111111"},
		11: {ID: 11, Phone: "+912222222222"},
	}}

	w := New(sched, exec, leads, 5, 100)
	w.processPendingCalls(context.Background())

	if len(exec.executed) != 2 {
		t.Fatalf("expected 2 calls executed, got %d", len(exec.executed))
	}
}

func TestWorker_ProcessPendingCalls_ContinuesAfterOneFailure(t *testing.T) {
	sched := &fakeScheduler{pending: []*domain.ScheduledCall{
		{ID: 1, LeadID: 10},
		{ID: 2, LeadID: 11},
	}}
	exec := &fakeExecutor{failFor: map[int64]bool{1: true}}
	leads := &fakeLeads{byID: map[int64]*domain.Lead{
		10: {ID: 10, Phone: "+911111111111"},
		11: {ID: 11, Phone: "+912222222222"},
	}}

	w := New(sched, exec, leads, 5, 100)
	w.processPendingCalls(context.Background())

	if len(exec.executed) != 1 || exec.executed[0] != 2 {
		t.Fatalf("expected only call 2 to succeed, got %v", exec.executed)
	}
}

func TestWorker_ProcessPendingCalls_NoCallsIsNoOp(t *testing.T) {
	sched := &fakeScheduler{}
	exec := &fakeExecutor{failFor: map[int64]bool{}}
	leads := &fakeLeads{byID: map[int64]*domain.Lead{}}

	w := New(sched, exec, leads, 5, 100)
	w.processPendingCalls(context.Background())

	if len(exec.executed) != 0 {
		t.Errorf("expected no executions, got %d", len(exec.executed))
	}
}
