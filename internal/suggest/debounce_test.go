package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"billmitra/backend/internal/cache"
	"billmitra/backend/internal/domain"
)

type resultRecorder struct {
	mu      sync.Mutex
	applied []Result
}

func (r *resultRecorder) sink(res Result) {
	r.mu.Lock()
	r.applied = append(r.applied, res)
	r.mu.Unlock()
}

func (r *resultRecorder) last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applied) == 0 {
		return Result{}, false
	}
	return r.applied[len(r.applied)-1], true
}

// "a" is issued, then "ab"; "a" resolves after "ab". The displayed
// candidates must be those for "ab".
func TestSlowEarlyResponseCannotClobberLaterQuery(t *testing.T) {
	recorder := &resultRecorder{}
	debounced := NewDebounced(nil, time.Millisecond, recorder.sink)

	seqA := debounced.Issue()
	seqAB := debounced.Issue()

	if !debounced.Deliver(Result{Seq: seqAB, Query: "ab", Candidates: []domain.Candidate{{Name: "ab-match"}}}) {
		t.Fatalf("current query result must apply")
	}
	if debounced.Deliver(Result{Seq: seqA, Query: "a", Candidates: []domain.Candidate{{Name: "a-match"}}}) {
		t.Fatalf("stale query result must be dropped")
	}

	last, ok := recorder.last()
	if !ok || last.Query != "ab" {
		t.Fatalf("expected candidates for %q, got %+v", "ab", last)
	}
}

func TestDeliverDropsAllButLatestToken(t *testing.T) {
	recorder := &resultRecorder{}
	debounced := NewDebounced(nil, time.Millisecond, recorder.sink)

	tokens := make([]uint64, 0, 5)
	for i := 0; i < 5; i++ {
		tokens = append(tokens, debounced.Issue())
	}

	for _, seq := range tokens[:4] {
		if debounced.Deliver(Result{Seq: seq}) {
			t.Fatalf("superseded token %d applied", seq)
		}
	}
	if !debounced.Deliver(Result{Seq: tokens[4]}) {
		t.Fatalf("latest token must apply")
	}
}

func TestSearchDebouncesRapidTyping(t *testing.T) {
	catalog := newFakeCatalog()
	adapter := NewAdapter(catalog, cache.NoopSuggestionCache{}, time.Second)

	recorder := &resultRecorder{}
	debounced := NewDebounced(adapter, 30*time.Millisecond, recorder.sink)

	ctx := context.Background()
	debounced.Search(ctx, "owner", "de")
	debounced.Search(ctx, "owner", "des")
	final := debounced.Search(ctx, "owner", "design")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if last, ok := recorder.last(); ok {
			if last.Seq != final || last.Query != "design" {
				t.Fatalf("expected only the final query to apply, got %+v", last)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("debounced search never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if catalog.calls != 1 {
		t.Fatalf("rapid typing must collapse to one catalog query, got %d", catalog.calls)
	}
}
