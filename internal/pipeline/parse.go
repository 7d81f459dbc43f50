// internal/pipeline/parse.go
package pipeline

import (
	"fmt"
	"time"

	"github.com/signalnine/fritzlog/internal/fritz"
	"github.com/signalnine/fritzlog/internal/model"
)

// The device renders timestamps as "dd.mm.yy HH:MM:SS" (lang=de is
// pinned in the fetch request). Parsed in the host's local zone; device
// and collector are assumed to share one.
const timestampLayout = "02.01.06 15:04:05"

// ParseError marks a single entry that could not be normalized. The
// caller drops the entry and continues; one bad row never aborts a
// batch.
type ParseError struct {
	Date string
	Time string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse entry (date=%q time=%q): %v", e.Date, e.Time, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseEntry normalizes a raw device row into a Record. Date, time and
// message are required; the event code is optional and left empty when
// absent. The record's Level is not set here, classification is a
// separate stage.
func ParseEntry(entry fritz.RawEntry) (model.Record, error) {
	if entry.Date == "" || entry.Time == "" || entry.Message == "" {
		return model.Record{}, &ParseError{
			Date: entry.Date,
			Time: entry.Time,
			Err:  fmt.Errorf("missing required field"),
		}
	}

	ts, err := time.ParseInLocation(timestampLayout, entry.Date+" "+entry.Time, time.Local)
	if err != nil {
		return model.Record{}, &ParseError{Date: entry.Date, Time: entry.Time, Err: err}
	}

	return model.Record{
		Timestamp: ts.Unix(),
		Date:      entry.Date,
		Time:      entry.Time,
		Message:   entry.Message,
		Code:      entry.Code,
	}, nil
}
