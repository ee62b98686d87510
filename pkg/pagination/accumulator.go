package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/searchstream/query-controller/pkg/fetch"
)

// Prometheus metrics for accumulator operations.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_pages_fetched_total",
		Help: "Total pages successfully fetched and appended",
	})

	pageErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_page_errors_total",
		Help: "Total page fetches that failed",
	})

	itemsAccumulatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_items_accumulated_total",
		Help: "Total items appended to result sets",
	})

	requestsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_requests_skipped_total",
		Help: "Total RequestPage calls skipped (already pending or exhausted)",
	})
)

// PageFetcher is the fetch capability the accumulator consumes.
// *fetch.Client satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, req fetch.PageRequest) (*fetch.PageResult, error)
}

// Config holds the accumulator configuration.
type Config struct {
	// Path is the endpoint path to page through (REQUIRED).
	Path string

	// Search is an optional fixed search term applied to every page.
	Search string

	// PageSize is the window size per page fetch.
	PageSize int

	// OnUpdate, when set, is invoked with a snapshot after every state
	// change. It must not call RequestPage or Reset synchronously.
	OnUpdate func(Snapshot)
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:     path,
		PageSize: 10,
	}
}

// Snapshot is a read-only view of the accumulated state for rendering.
type Snapshot struct {
	// Items are all items accumulated so far, in fetch order.
	Items []json.RawMessage

	// HasMore is false once the end of the data has been reached.
	HasMore bool

	// Loading is true while a page fetch is in flight.
	Loading bool

	// Err holds the last page failure message. It is cleared by the next
	// successful page and by Reset; accumulated items survive failures.
	Err string

	// Offset is the index the next page fetch would start at.
	Offset int

	// Total is the total item count reported by the endpoint. Zero when
	// unknown.
	Total int
}

// Accumulator tracks page offset and end-of-data state for one list stream.
type Accumulator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger

	// notifyMu serializes state changes with their OnUpdate delivery.
	notifyMu sync.Mutex

	mu        sync.Mutex
	items     []json.RawMessage
	offset    int
	total     int
	exhausted bool
	errMsg    string
	pending   *pageToken
}

// pageToken identifies one in-flight page fetch. Reset cancels it and makes
// its completion a no-op.
type pageToken struct {
	id     uuid.UUID
	cancel context.CancelFunc
}

// New creates an accumulator for one list stream.
func New(fetcher PageFetcher, cfg Config) (*Accumulator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}

	return &Accumulator{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "pagination").Str("endpoint", cfg.Path).Logger(),
	}, nil
}

// RequestPage issues a fetch for the next page window. It is a no-op when a
// page fetch is already pending or the data is exhausted, so callers may
// invoke it freely from scroll handlers.
func (a *Accumulator) RequestPage(ctx context.Context) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	if a.pending != nil || a.exhausted {
		requestsSkippedTotal.Inc()
		a.logger.Debug().
			Bool("pending", a.pending != nil).
			Bool("exhausted", a.exhausted).
			Msg("Skipping page request")
		a.mu.Unlock()
		return
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	tok := &pageToken{id: uuid.New(), cancel: cancel}
	a.pending = tok
	offset := a.offset

	a.logger.Debug().
		Str("token_id", tok.id.String()).
		Int("offset", offset).
		Int("limit", a.config.PageSize).
		Msg("Dispatching page fetch")

	go a.runFetch(fetchCtx, tok, offset)

	a.publishLocked()
}

// runFetch executes the page fetch for tok and applies the result only if
// tok is still the pending token when it completes.
func (a *Accumulator) runFetch(ctx context.Context, tok *pageToken, offset int) {
	result, err := a.fetcher.FetchPage(ctx, fetch.PageRequest{
		Path:   a.config.Path,
		Search: a.config.Search,
		Offset: offset,
		Limit:  a.config.PageSize,
	})

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	if a.pending == nil || a.pending.id != tok.id {
		a.logger.Debug().
			Str("token_id", tok.id.String()).
			Msg("Discarding result for superseded page fetch")
		a.mu.Unlock()
		return
	}
	a.pending = nil

	if err != nil {
		if fetch.IsCancelled(err) {
			// Reset clears the pending token before this check runs, so a
			// cancelled current token only means the caller's context
			// ended. Offset and items stay put for a retry.
			a.publishLocked()
			return
		}

		pageErrorsTotal.Inc()
		a.errMsg = err.Error()

		// Offset and accumulated items stay put so the same window can be
		// retried idempotently.
		a.logger.Warn().
			Err(err).
			Str("token_id", tok.id.String()).
			Int("offset", offset).
			Msg("Page fetch failed")

		a.publishLocked()
		return
	}

	a.items = append(a.items, result.Items...)
	a.offset = offset + len(result.Items)
	a.errMsg = ""
	if result.Total > 0 {
		a.total = result.Total
	}

	if len(result.Items) < a.config.PageSize || (a.total > 0 && a.offset >= a.total) {
		a.exhausted = true
	}

	pagesFetchedTotal.Inc()
	itemsAccumulatedTotal.Add(float64(len(result.Items)))

	a.logger.Debug().
		Str("token_id", tok.id.String()).
		Int("appended", len(result.Items)).
		Int("offset", a.offset).
		Bool("exhausted", a.exhausted).
		Msg("Page appended")

	a.publishLocked()
}

// Reset cancels any pending fetch and returns the accumulator to its initial
// state: offset zero, not exhausted, empty result set. Used when the
// underlying query changes and as teardown.
func (a *Accumulator) Reset() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	if a.pending != nil {
		a.logger.Debug().
			Str("token_id", a.pending.id.String()).
			Msg("Cancelling pending page fetch")
		a.pending.cancel()
		a.pending = nil
	}

	a.items = nil
	a.offset = 0
	a.total = 0
	a.exhausted = false
	a.errMsg = ""

	a.publishLocked()
}

// Snapshot returns a copy of the observable state. The items slice is not
// aliased with accumulator-internal state.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// snapshotLocked copies the snapshot. Callers must hold a.mu.
func (a *Accumulator) snapshotLocked() Snapshot {
	snap := Snapshot{
		HasMore: !a.exhausted,
		Loading: a.pending != nil,
		Err:     a.errMsg,
		Offset:  a.offset,
		Total:   a.total,
	}
	if len(a.items) > 0 {
		snap.Items = append(a.items[:0:0], a.items...)
	}
	return snap
}

// publishLocked releases a.mu and delivers the snapshot to OnUpdate.
// Callers must hold both notifyMu and a.mu.
func (a *Accumulator) publishLocked() {
	snap := a.snapshotLocked()
	cb := a.config.OnUpdate
	a.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}
