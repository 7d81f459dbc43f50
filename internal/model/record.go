// internal/model/record.go
package model

// Level is a record's derived severity. The device never supplies one;
// classification assigns it from message content and event code.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Values written into every output line.
const (
	Source    = "fritzbox"
	Component = "system"
)

// Record is one normalized event-log entry. Date, Time and Message are
// preserved verbatim as the device sent them; Timestamp is derived from
// them. Code may be empty.
type Record struct {
	Timestamp int64
	Date      string
	Time      string
	Message   string
	Code      string
	Level     Level
}

// Identity is the dedup key for a record. Timestamp alone is not enough:
// multiple entries can share one second.
type Identity struct {
	Date    string
	Time    string
	Message string
}

// Identity returns the record's dedup key.
func (r Record) Identity() Identity {
	return Identity{Date: r.Date, Time: r.Time, Message: r.Message}
}

// Line is the on-disk JSON shape, one object per line of the output file.
// Field order is part of the contract with downstream parsers (Promtail
// label extraction) and must not change across releases.
type Line struct {
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Labels    Labels `json:"labels"`
}

// Labels carries the label set attached to every output line.
type Labels struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Code      string `json:"code"`
	Component string `json:"component"`
	Severity  string `json:"severity"`
}

// Line converts a record into its serialized output shape.
func (r Record) Line() Line {
	return Line{
		Timestamp: r.Timestamp,
		Level:     string(r.Level),
		Source:    Source,
		Message:   r.Message,
		Labels: Labels{
			Date:      r.Date,
			Time:      r.Time,
			Code:      r.Code,
			Component: Component,
			Severity:  string(r.Level),
		},
	}
}

// Identity returns the dedup key for an already-written line.
func (l Line) Identity() Identity {
	return Identity{Date: l.Labels.Date, Time: l.Labels.Time, Message: l.Message}
}
