// internal/pipeline/parse_test.go
package pipeline

import (
	"testing"
	"time"

	"github.com/signalnine/fritzlog/internal/fritz"
)

func TestParseEntry(t *testing.T) {
	rec, err := ParseEntry(fritz.RawEntry{
		Date:    "01.06.25",
		Time:    "10:00:00",
		Message: "Anmeldung erfolgreich",
		Code:    "1",
	})
	if err != nil {
		t.Fatalf("ParseEntry error: %v", err)
	}

	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local).Unix()
	if rec.Timestamp != want {
		t.Errorf("Timestamp = %d, want %d", rec.Timestamp, want)
	}
	if rec.Date != "01.06.25" || rec.Time != "10:00:00" {
		t.Errorf("date/time not preserved verbatim: %q %q", rec.Date, rec.Time)
	}
	if rec.Code != "1" {
		t.Errorf("Code = %q, want 1", rec.Code)
	}
	if rec.Level != "" {
		t.Errorf("Level = %q, parser must not classify", rec.Level)
	}
}

func TestParseEntryMissingCode(t *testing.T) {
	rec, err := ParseEntry(fritz.RawEntry{
		Date:    "01.06.25",
		Time:    "10:00:00",
		Message: "DSL ist verfügbar.",
	})
	if err != nil {
		t.Fatalf("ParseEntry error: %v", err)
	}
	if rec.Code != "" {
		t.Errorf("Code = %q, want empty for absent code", rec.Code)
	}
}

func TestParseEntryRejectsBadRows(t *testing.T) {
	bad := []fritz.RawEntry{
		{Time: "10:00:00", Message: "no date"},
		{Date: "01.06.25", Message: "no time"},
		{Date: "01.06.25", Time: "10:00:00"}, // no message
		{Date: "2025-06-01", Time: "10:00:00", Message: "wrong date format"},
		{Date: "01.06.25", Time: "25:99:99", Message: "impossible time"},
	}

	for _, entry := range bad {
		if _, err := ParseEntry(entry); err == nil {
			t.Errorf("ParseEntry(%+v) accepted a bad row", entry)
		}
	}
}

func TestParseEntryMonotonicBatch(t *testing.T) {
	// Device emission order within one batch must map to monotonic
	// timestamps.
	entries := []fritz.RawEntry{
		{Date: "01.06.25", Time: "09:00:00", Message: "a"},
		{Date: "01.06.25", Time: "09:00:00", Message: "b"},
		{Date: "01.06.25", Time: "10:30:00", Message: "c"},
		{Date: "02.06.25", Time: "00:00:01", Message: "d"},
	}

	var last int64
	for _, entry := range entries {
		rec, err := ParseEntry(entry)
		if err != nil {
			t.Fatalf("ParseEntry error: %v", err)
		}
		if rec.Timestamp < last {
			t.Errorf("timestamp went backwards at %q: %d < %d", entry.Message, rec.Timestamp, last)
		}
		last = rec.Timestamp
	}
}
