// internal/logfile/logfile.go
package logfile

import (
	"github.com/signalnine/fritzlog/internal/model"
)

// Store is the append-only record sink and, at the same time, the dedup
// state: the most recently written identities are recovered from
// whatever already holds the records. The JSONL output file is the
// canonical implementation; there is deliberately no separate state
// file, so a crash can never leave state and output disagreeing.
type Store interface {
	// RecentIdentities returns the identities of up to n most recently
	// written records, oldest first. A store with no records yet
	// returns an empty slice, not an error.
	RecentIdentities(n int) ([]model.Identity, error)

	// Append writes the records in order, one serialized line each, and
	// reports how many were durably written. Records already written
	// stay valid even when a later record's write fails.
	Append(records []model.Record) (int, error)
}
