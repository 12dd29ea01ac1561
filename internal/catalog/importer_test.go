package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedFetcher returns canned results per subcategory and can hold a
// fetch open until its context is cancelled.
type scriptedFetcher struct {
	mu       sync.Mutex
	results  map[string][]Section
	errs     map[string]error
	blocking map[string]bool
	started  chan string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		results:  make(map[string][]Section),
		errs:     make(map[string]error),
		blocking: make(map[string]bool),
		started:  make(chan string, 8),
	}
}

func (f *scriptedFetcher) FetchSections(ctx context.Context, subcategory string) ([]Section, error) {
	f.started <- subcategory

	f.mu.Lock()
	block := f.blocking[subcategory]
	result := f.results[subcategory]
	err := f.errs[subcategory]
	f.mu.Unlock()

	if block {
		// Hold the fetch open until superseded, then return the stale
		// result as if the network had resolved late.
		<-ctx.Done()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func oneSection(name string) []Section {
	return []Section{{Title: SectionTitle, Items: []Node{{Name: name}}}}
}

func TestImporter_CommitsSuccess(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.results["winter"] = oneSection("Skiing")

	imp := NewImporter(fetcher)
	imp.Load(context.Background(), "winter")

	state := imp.Snapshot()
	if state.Loading {
		t.Error("Loading should be false after commit")
	}
	if state.Err != "" {
		t.Errorf("Err = %q, want empty", state.Err)
	}
	if len(state.Sections) != 1 || state.Sections[0].Items[0].Name != "Skiing" {
		t.Errorf("Sections = %v, want one Skiing section", state.Sections)
	}
}

func TestImporter_CommitsFailure(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.errs["winter"] = errors.New("fetch document: HTTP 502")

	imp := NewImporter(fetcher)
	imp.Load(context.Background(), "winter")

	state := imp.Snapshot()
	if state.Err != "fetch document: HTTP 502" {
		t.Errorf("Err = %q, want the fetch error", state.Err)
	}
	if state.Loading || state.Sections != nil {
		t.Errorf("state = %+v, want error only", state)
	}
}

func TestImporter_LoadingVisibleWhileInFlight(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.blocking["slow"] = true

	imp := NewImporter(fetcher)

	done := make(chan struct{})
	go func() {
		imp.Load(context.Background(), "slow")
		close(done)
	}()

	<-fetcher.started
	if state := imp.Snapshot(); !state.Loading {
		t.Error("Loading should be true while the fetch is outstanding")
	}

	imp.Cancel()
	<-done
}

func TestImporter_LastWriterWins(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.blocking["stale"] = true
	fetcher.results["stale"] = oneSection("Stale Sport")
	fetcher.results["fresh"] = oneSection("Curling")

	imp := NewImporter(fetcher)

	staleDone := make(chan struct{})
	go func() {
		imp.Load(context.Background(), "stale")
		close(staleDone)
	}()
	<-fetcher.started

	// Starting a newer fetch cancels the stale one; the stale fetch
	// then resolves late with data that must never appear.
	imp.Load(context.Background(), "fresh")

	select {
	case <-staleDone:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch did not unblock")
	}

	state := imp.Snapshot()
	if len(state.Sections) != 1 || state.Sections[0].Items[0].Name != "Curling" {
		t.Fatalf("Sections = %v, want only the fresh result", state.Sections)
	}
	if state.Err != "" || state.Loading {
		t.Errorf("state = %+v, want clean committed result", state)
	}
}

func TestImporter_CancellationIsNotAnError(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.errs["winter"] = context.Canceled

	imp := NewImporter(fetcher)
	imp.Load(context.Background(), "winter")

	state := imp.Snapshot()
	if state.Err != "" {
		t.Errorf("cancellation surfaced as error %q", state.Err)
	}
	if state.Loading {
		t.Error("Loading should be cleared after cancellation")
	}
}

func TestImporter_CancelClearsState(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.blocking["slow"] = true
	fetcher.results["slow"] = oneSection("Late Sport")

	imp := NewImporter(fetcher)

	done := make(chan struct{})
	go func() {
		imp.Load(context.Background(), "slow")
		close(done)
	}()
	<-fetcher.started

	imp.Cancel()
	<-done

	state := imp.Snapshot()
	if state.Loading || state.Err != "" || state.Sections != nil {
		t.Errorf("state after Cancel = %+v, want zero value", state)
	}
}
