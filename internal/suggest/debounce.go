package suggest

import (
	"context"
	"sync"
	"time"

	"billmitra/backend/internal/domain"
)

// DefaultDebounceWindow collapses rapid keystrokes to at most one
// outstanding catalog query.
const DefaultDebounceWindow = 300 * time.Millisecond

// Result is one resolved query, tagged with the sequence token it was
// issued under.
type Result struct {
	Seq        uint64
	Query      string
	Candidates []domain.Candidate
	Err        error
}

// Debounced wraps an Adapter with a debounce window and a stale-response
// guard. Every call to Search supersedes all earlier ones: a result whose
// token is no longer current is dropped, even if its response arrives last,
// so results are always applied in query order rather than response order.
// Superseded in-flight requests are not cancelled, only suppressed.
type Debounced struct {
	adapter *Adapter
	window  time.Duration
	sink    func(Result)

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

func NewDebounced(adapter *Adapter, window time.Duration, sink func(Result)) *Debounced {
	if window < 0 {
		window = DefaultDebounceWindow
	}
	if sink == nil {
		sink = func(Result) {}
	}
	return &Debounced{adapter: adapter, window: window, sink: sink}
}

// Search schedules a query after the debounce window and returns its
// sequence token. A window of zero dispatches immediately (still async).
func (d *Debounced) Search(ctx context.Context, ownerID string, query string) uint64 {
	d.mu.Lock()
	seq := d.issueLocked()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.window == 0 {
		d.mu.Unlock()
		go d.run(ctx, seq, ownerID, query)
		return seq
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.run(ctx, seq, ownerID, query)
	})
	d.mu.Unlock()
	return seq
}

// Issue mints a fresh sequence token, superseding all earlier ones.
func (d *Debounced) Issue() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.issueLocked()
}

func (d *Debounced) issueLocked() uint64 {
	d.seq++
	return d.seq
}

func (d *Debounced) run(ctx context.Context, seq uint64, ownerID string, query string) {
	if d.stale(seq) {
		return
	}
	candidates, err := d.adapter.Search(ctx, ownerID, query)
	d.Deliver(Result{Seq: seq, Query: query, Candidates: candidates, Err: err})
}

// Deliver applies a result through the sink only if no newer query has been
// issued since the result's token was minted. Returns whether it applied.
// The sink runs under the guard lock, serializing applications.
func (d *Debounced) Deliver(res Result) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if res.Seq != d.seq {
		return false
	}
	d.sink(res)
	return true
}

func (d *Debounced) stale(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq != d.seq
}
