package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/callum/sitecheck/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func summaryAt(id string, start time.Time) models.SessionSummary {
	return models.SessionSummary{
		SessionID:      id,
		URL:            "https://example.com",
		TotalPages:     3,
		TestsRun:       9,
		TestsSucceeded: 8,
		TestsFailed:    1,
		Errors:         []string{"seo (https://example.com): boom"},
		StartTime:      start,
		EndTime:        start.Add(time.Minute),
	}
}

func TestStore_RecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.RecordSession(ctx, summaryAt("s1", start)); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	r := records[0]
	if r.SessionID != "s1" || r.URL != "https://example.com" {
		t.Errorf("record = %+v", r)
	}
	if r.TestsRun != 9 || r.TestsSucceeded != 8 || r.TestsFailed != 1 {
		t.Errorf("counters = %d/%d/%d", r.TestsRun, r.TestsSucceeded, r.TestsFailed)
	}
	if len(r.Errors) != 1 || r.Errors[0] != "seo (https://example.com): boom" {
		t.Errorf("errors = %v", r.Errors)
	}
}

func TestStore_RecentSessionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("s%d", i)
		if err := store.RecordSession(ctx, summaryAt(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	records, err := store.RecentSessions(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"s4", "s3", "s2"} {
		if records[i].SessionID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].SessionID, want)
		}
	}
}

func TestStore_DuplicateSessionRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Now()
	if err := store.RecordSession(ctx, summaryAt("dup", start)); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := store.RecordSession(ctx, summaryAt("dup", start)); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestStore_EmptyHistory(t *testing.T) {
	store := newTestStore(t)
	records, err := store.RecentSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
