// internal/pipeline/dedupe.go
package pipeline

import (
	"github.com/signalnine/fritzlog/internal/model"
)

// WindowSize is how many recently written identities the dedup state
// keeps. Large enough to cover same-second bursts and chatty devices
// between two cycles, small enough to make the tail scan cheap.
const WindowSize = 50

// Dedupe returns the records of batch that are not yet persisted,
// oldest first, ready to append.
//
// The batch is first normalized to chronological order (the device
// emits newest first, but the order is re-derived per batch rather than
// assumed). The chronologically last record whose identity appears in
// the prior window marks the dedup boundary: everything after it is
// new, everything up to and including it is already on disk.
//
// A batch with no overlap at all means the device's retained history is
// shorter than the gap since the last run. The whole batch is treated
// as new; losing the scrolled-off entries is unavoidable, silently
// dropping the visible ones would be worse.
func Dedupe(batch []model.Record, prior []model.Identity) []model.Record {
	sorted := chronological(batch)

	seen := make(map[model.Identity]bool, len(prior))
	for _, id := range prior {
		seen[id] = true
	}

	boundary := -1
	for i, rec := range sorted {
		if seen[rec.Identity()] {
			boundary = i
		}
	}

	return sorted[boundary+1:]
}

// chronological returns the batch oldest-first. The emission order is
// detected by comparing the ends of the batch; a reversed batch is
// flipped wholesale so that entries sharing a timestamp keep their
// relative device order. When the ends tie the order is undecidable
// from timestamps alone and the device contract (newest first) is
// assumed.
func chronological(batch []model.Record) []model.Record {
	out := make([]model.Record, len(batch))
	if len(batch) >= 2 && batch[0].Timestamp >= batch[len(batch)-1].Timestamp {
		for i, rec := range batch {
			out[len(batch)-1-i] = rec
		}
		return out
	}
	copy(out, batch)
	return out
}
