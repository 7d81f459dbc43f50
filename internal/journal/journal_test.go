// internal/journal/journal_test.go
package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func TestInsertAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer db.Close()

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	runs := []*Run{
		{StartedAt: started, FinishedAt: started.Add(2 * time.Second), Fetched: 400, Excluded: 12, Appended: 7, Status: "ok"},
		{StartedAt: started.Add(5 * time.Minute), FinishedAt: started.Add(5*time.Minute + time.Second), Status: "error", Error: "login: authentication failed"},
	}
	for _, r := range runs {
		if err := db.Insert(r); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent = %d runs, want 2", len(got))
	}
	// Newest first.
	if got[0].Status != "error" {
		t.Errorf("got[0].Status = %q, want error", got[0].Status)
	}
	if got[1].Fetched != 400 || got[1].Appended != 7 {
		t.Errorf("got[1] counters = %+v", got[1])
	}
	if !got[1].StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got[1].StartedAt, started)
	}
}

func TestFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Second)
	db.Insert(&Run{StartedAt: now, FinishedAt: now, Status: "ok"})
	db.Insert(&Run{StartedAt: now, FinishedAt: now, Status: "error", Error: "fetch event log: unrecognized device response"})

	failed, err := db.Failed(10)
	if err != nil {
		t.Fatalf("Failed error: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("Failed = %d runs, want 1", len(failed))
	}
	if failed[0].Error == "" {
		t.Error("failed run lost its error text")
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent = %d runs on empty journal, want 0", len(got))
	}
}
