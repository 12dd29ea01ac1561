package catalog

import (
	"context"
	"errors"
	"sync"
)

// Fetcher produces catalog sections for a subcategory key.
type Fetcher interface {
	FetchSections(ctx context.Context, subcategory string) ([]Section, error)
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)

// State is a snapshot of the importer's visible state. Exactly one of
// the three aspects is meaningful at a time: loading, an error message,
// or the fetched sections.
type State struct {
	Loading  bool
	Sections []Section
	Err      string
}

// Importer owns the fetch lifecycle for the catalog picker. Starting a
// new fetch cancels any in-flight previous fetch, and a superseded
// fetch never commits its result: only the most recently started fetch
// may update visible state.
type Importer struct {
	fetcher Fetcher

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	state  State
}

// NewImporter creates an importer backed by the given fetcher.
func NewImporter(fetcher Fetcher) *Importer {
	return &Importer{fetcher: fetcher}
}

// Load fetches sections for a subcategory, replacing any in-flight
// fetch. It blocks until the fetch resolves or is superseded; callers
// that need it concurrent run it in a goroutine.
func (imp *Importer) Load(ctx context.Context, subcategory string) {
	imp.mu.Lock()
	if imp.cancel != nil {
		imp.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	imp.cancel = cancel
	imp.gen++
	gen := imp.gen
	imp.state = State{Loading: true}
	imp.mu.Unlock()

	sections, err := imp.fetcher.FetchSections(ctx, subcategory)

	imp.mu.Lock()
	defer imp.mu.Unlock()

	// A newer fetch has started; this result is stale and must not
	// touch loading, sections, or error state.
	if gen != imp.gen {
		return
	}
	imp.cancel = nil

	if err != nil {
		// Cancellation is intentional and never surfaced as an error.
		if errors.Is(err, context.Canceled) {
			imp.state = State{}
			return
		}
		imp.state = State{Err: err.Error()}
		return
	}

	imp.state = State{Sections: sections}
}

// Cancel aborts any in-flight fetch without starting a new one.
func (imp *Importer) Cancel() {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.cancel != nil {
		imp.cancel()
		imp.cancel = nil
	}
	imp.gen++
	imp.state = State{}
}

// Snapshot returns the current visible state. The sections slice is
// shared with the importer and must be treated as read-only; filtering
// derives new trees instead of mutating it.
func (imp *Importer) Snapshot() State {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.state
}
