// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signalnine/fritzlog/internal/fritz"
	"github.com/signalnine/fritzlog/internal/logfile"
	"github.com/signalnine/fritzlog/internal/model"
)

// Pipeline runs one collect cycle end to end: login, fetch, parse,
// filter, classify, dedupe, append. Cycles are synchronous and must not
// run concurrently against the same output file; the caller serializes
// invocations.
type Pipeline struct {
	client     *fritz.Client
	store      logfile.Store
	classifier *Classifier
	log        zerolog.Logger
}

// Stats summarizes one cycle. Every fetched entry ends up in exactly
// one bucket: parse failure, excluded, duplicate, or appended — nothing
// is dropped unaccounted.
type Stats struct {
	Fetched       int
	ParseFailures int
	Excluded      int
	Appended      int
}

// New assembles a pipeline.
func New(client *fritz.Client, store logfile.Store, classifier *Classifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		client:     client,
		store:      store,
		classifier: classifier,
		log:        log,
	}
}

// Run executes one cycle and appends the new records. Already-appended
// lines stay valid even when a later step fails; there is no other
// partial state to clean up.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	fresh, stats, err := p.collect(ctx)
	if err != nil {
		return stats, err
	}

	n, err := p.store.Append(fresh)
	stats.Appended = n
	if err != nil {
		return stats, fmt.Errorf("append: %w", err)
	}

	p.log.Info().
		Int("fetched", stats.Fetched).
		Int("parse_failures", stats.ParseFailures).
		Int("excluded", stats.Excluded).
		Int("appended", stats.Appended).
		Msg("cycle complete")
	return stats, nil
}

// Preview runs everything except the append and returns the records
// that Run would write. Used by the check command.
func (p *Pipeline) Preview(ctx context.Context) ([]model.Record, Stats, error) {
	return p.collect(ctx)
}

func (p *Pipeline) collect(ctx context.Context) ([]model.Record, Stats, error) {
	var stats Stats

	sid, err := p.client.Login(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("login: %w", err)
	}

	entries, err := p.client.FetchEventLog(ctx, sid)
	if errors.Is(err, fritz.ErrSessionExpired) {
		// The SID can expire between login and fetch. Re-acquire once;
		// a second expiry is a real fault.
		p.log.Debug().Msg("session expired, acquiring a new one")
		if sid, err = p.client.Login(ctx); err == nil {
			entries, err = p.client.FetchEventLog(ctx, sid)
		}
	}
	if err != nil {
		return nil, stats, fmt.Errorf("fetch event log: %w", err)
	}
	stats.Fetched = len(entries)

	var batch []model.Record
	for _, entry := range entries {
		rec, err := ParseEntry(entry)
		if err != nil {
			stats.ParseFailures++
			p.log.Warn().Err(err).Msg("dropping unparsable entry")
			continue
		}
		if p.classifier.Excluded(rec.Message) {
			stats.Excluded++
			p.log.Debug().Str("message", rec.Message).Msg("excluded by pattern")
			continue
		}
		rec.Level = p.classifier.Classify(rec.Message, rec.Code)
		batch = append(batch, rec)
	}

	prior, err := p.store.RecentIdentities(WindowSize)
	if err != nil {
		return nil, stats, fmt.Errorf("load dedup state: %w", err)
	}

	return Dedupe(batch, prior), stats, nil
}
