// internal/pipeline/dedupe_test.go
package pipeline

import (
	"fmt"
	"testing"

	"github.com/signalnine/fritzlog/internal/model"
)

func rec(ts int64, msg string) model.Record {
	return model.Record{
		Timestamp: ts,
		Date:      "01.06.25",
		Time:      fmt.Sprintf("10:00:%02d", ts%60),
		Message:   msg,
		Level:     model.LevelInfo,
	}
}

func identities(recs []model.Record) []model.Identity {
	ids := make([]model.Identity, len(recs))
	for i, r := range recs {
		ids[i] = r.Identity()
	}
	return ids
}

func TestDedupeFreshStart(t *testing.T) {
	batch := []model.Record{rec(3, "c"), rec(2, "b"), rec(1, "a")} // newest first

	fresh := Dedupe(batch, nil)
	if len(fresh) != 3 {
		t.Fatalf("fresh = %d, want 3 on empty prior state", len(fresh))
	}
	// Output is chronological regardless of fetch order.
	if fresh[0].Message != "a" || fresh[2].Message != "c" {
		t.Errorf("fresh order = %q..%q, want a..c", fresh[0].Message, fresh[2].Message)
	}
}

func TestDedupeFullOverlap(t *testing.T) {
	written := []model.Record{rec(1, "a"), rec(2, "b"), rec(3, "c")}
	prior := identities(written)

	// Device re-sends the same window, newest first.
	batch := []model.Record{rec(3, "c"), rec(2, "b"), rec(1, "a")}
	fresh := Dedupe(batch, prior)
	if len(fresh) != 0 {
		t.Errorf("fresh = %d, want 0 on full overlap", len(fresh))
	}
}

func TestDedupePartialOverlap(t *testing.T) {
	prior := identities([]model.Record{rec(1, "a"), rec(2, "b")})

	batch := []model.Record{rec(4, "d"), rec(3, "c"), rec(2, "b"), rec(1, "a")}
	fresh := Dedupe(batch, prior)
	if len(fresh) != 2 {
		t.Fatalf("fresh = %d, want 2", len(fresh))
	}
	if fresh[0].Message != "c" || fresh[1].Message != "d" {
		t.Errorf("fresh = %q,%q, want c,d", fresh[0].Message, fresh[1].Message)
	}
}

func TestDedupeHistoryScrolledOff(t *testing.T) {
	// Everything previously written has scrolled out of the device's
	// retention window. Policy: the whole batch is new.
	prior := identities([]model.Record{rec(1, "ancient"), rec(2, "old")})

	batch := []model.Record{rec(100, "y"), rec(99, "x")}
	fresh := Dedupe(batch, prior)
	if len(fresh) != 2 {
		t.Fatalf("fresh = %d, want whole batch when no overlap remains", len(fresh))
	}
	if fresh[0].Message != "x" || fresh[1].Message != "y" {
		t.Errorf("fresh = %q,%q, want x,y", fresh[0].Message, fresh[1].Message)
	}
}

func TestDedupeSameTimestampBurst(t *testing.T) {
	a := model.Record{Timestamp: 10, Date: "01.06.25", Time: "10:00:10", Message: "burst one"}
	b := model.Record{Timestamp: 10, Date: "01.06.25", Time: "10:00:10", Message: "burst two"}
	c := model.Record{Timestamp: 10, Date: "01.06.25", Time: "10:00:10", Message: "burst three"}

	// First run wrote a and b.
	prior := []model.Identity{a.Identity(), b.Identity()}

	// Next batch carries all three, newest first.
	fresh := Dedupe([]model.Record{c, b, a}, prior)
	if len(fresh) != 1 {
		t.Fatalf("fresh = %d, want 1", len(fresh))
	}
	if fresh[0].Message != "burst three" {
		t.Errorf("fresh = %q, want the unseen burst record", fresh[0].Message)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	batch := []model.Record{rec(3, "c"), rec(2, "b"), rec(1, "a")}

	fresh := Dedupe(batch, nil)
	if len(fresh) != 3 {
		t.Fatalf("first pass fresh = %d, want 3", len(fresh))
	}

	// Feed the resulting state back in: second pass must yield nothing.
	again := Dedupe(batch, identities(fresh))
	if len(again) != 0 {
		t.Errorf("second pass fresh = %d, want 0", len(again))
	}
}

func TestDedupeAcceptsOldestFirstBatch(t *testing.T) {
	// Order is derived per batch, not assumed: an oldest-first batch
	// must not get flipped.
	batch := []model.Record{rec(1, "a"), rec(2, "b"), rec(3, "c")}
	fresh := Dedupe(batch, nil)
	if len(fresh) != 3 || fresh[0].Message != "a" || fresh[2].Message != "c" {
		t.Errorf("oldest-first batch mishandled: %v", identities(fresh))
	}
}
