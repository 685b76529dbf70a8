package session

import (
	"context"
	"testing"
	"time"
)

func TestStore_CreateAndGet_MemoryOnly(t *testing.T) {
	store := NewStore(nil, time.Hour)

	sess, err := store.Create(context.Background(), "call-1", 1, 2, "Priya")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if sess.CallID != "call-1" {
		t.Errorf("expected CallID 'call-1', got %q", sess.CallID)
	}

	got, err := store.Get(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.AgentName != "Priya" {
		t.Errorf("expected AgentName 'Priya', got %q", got.AgentName)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store := NewStore(nil, time.Hour)

	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing session, got %+v", got)
	}
}

func TestStore_AppendTurn(t *testing.T) {
	store := NewStore(nil, time.Hour)
	ctx := context.Background()

	if _, err := store.Create(ctx, "call-2", 1, 2, "Priya"); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := store.AppendTurn(ctx, "call-2", "agent", "Hello, am I speaking with Ramesh?"); err != nil {
		t.Fatalf("AppendTurn() failed: %v", err)
	}

	got, _ := store.Get(ctx, "call-2")
	if len(got.History) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(got.History))
	}
	if got.History[0].Role != "agent" {
		t.Errorf("expected role 'agent', got %q", got.History[0].Role)
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(nil, time.Hour)
	ctx := context.Background()

	store.Create(ctx, "call-3", 1, 2, "Priya")
	if err := store.Delete(ctx, "call-3"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	got, _ := store.Get(ctx, "call-3")
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}
