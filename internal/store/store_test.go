package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/store"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VOICE_AGENT_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOICE_AGENT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOICE_AGENT_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()
	s, err := store.New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStore_CampaignAndLeadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	campaign := &domain.Campaign{
		Name:               "July Whitefield Push",
		Status:             domain.CampaignDraft,
		AgentName:          "Priya",
		CallingHoursStart:  10,
		CallingHoursEnd:    19,
		MaxConcurrentCalls: 5,
		MaxAttempts:        3,
	}
	if err := s.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if campaign.ID == 0 {
		t.Fatal("expected campaign to receive an assigned id")
	}

	got, err := s.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got == nil || got.Name != campaign.Name {
		t.Fatalf("expected campaign to round-trip, got %+v", got)
	}
}

func TestStore_ScheduledCallLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	campaign := &domain.Campaign{Name: "Test", AgentName: "Priya", MaxAttempts: 3, MaxConcurrentCalls: 5}
	if err := s.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	lead := &domain.Lead{Name: "Asha", Phone: "+919876543210", CampaignID: &campaign.ID}
	if err := s.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	sc := &domain.ScheduledCall{
		LeadID:       lead.ID,
		CampaignID:   campaign.ID,
		Status:       domain.ScheduledCallPending,
		ScheduledFor: time.Now(),
		MaxAttempts:  3,
	}
	if err := s.CreateScheduledCalls(ctx, []*domain.ScheduledCall{sc}); err != nil {
		t.Fatalf("CreateScheduledCalls: %v", err)
	}

	got, err := s.GetScheduledCall(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetScheduledCall: %v", err)
	}
	if got == nil || got.Status != domain.ScheduledCallPending {
		t.Fatalf("expected pending scheduled call, got %+v", got)
	}

	got.Status = domain.ScheduledCallCalling
	if err := s.UpdateScheduledCall(ctx, got); err != nil {
		t.Fatalf("UpdateScheduledCall: %v", err)
	}

	count, err := s.CountCalling(ctx)
	if err != nil {
		t.Fatalf("CountCalling: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 calling row, got %d", count)
	}
}

func TestStore_CallSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	campaign := &domain.Campaign{Name: "Test", AgentName: "Priya", MaxAttempts: 3, MaxConcurrentCalls: 5}
	if err := s.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	lead := &domain.Lead{Name: "Vikram", Phone: "+919876500000", CampaignID: &campaign.ID}
	if err := s.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	cs := &domain.CallSession{
		LeadID:         lead.ID,
		CampaignID:     campaign.ID,
		ProviderCallID: "CA999",
		Status:         domain.CallSessionInitiated,
		Transcript:     []domain.TranscriptTurn{{Speaker: "agent", Text: "Hi there", Timestamp: time.Now()}},
		ExtractedData:  map[string]any{"budget": "80 lakhs"},
	}
	if err := s.CreateCallSession(ctx, cs); err != nil {
		t.Fatalf("CreateCallSession: %v", err)
	}

	got, err := s.GetCallSessionByProviderID(ctx, "CA999")
	if err != nil {
		t.Fatalf("GetCallSessionByProviderID: %v", err)
	}
	if got == nil || len(got.Transcript) != 1 || got.Transcript[0].Text != "Hi there" {
		t.Fatalf("expected transcript to round-trip, got %+v", got)
	}
	if got.ExtractedData["budget"] != "80 lakhs" {
		t.Errorf("expected extracted data to round-trip, got %+v", got.ExtractedData)
	}
}
