package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/searchstream/query-controller/pkg/debounce"
	"github.com/searchstream/query-controller/pkg/fetch"
)

// Prometheus metrics for query controller operations.
var (
	querySubmitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_submits_total",
		Help: "Total queries accepted by Submit/SubmitNow",
	})

	queryFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_fetches_total",
		Help: "Total fetches dispatched for queries",
	})

	querySkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_skipped_total",
		Help: "Total queries skipped for being below the minimum length",
	})

	querySupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_superseded_total",
		Help: "Total in-flight requests cancelled by a newer query",
	})

	queryStaleDiscardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_stale_discards_total",
		Help: "Total completions discarded because their token was no longer current",
	})
)

// PageFetcher is the fetch capability the controller consumes.
// *fetch.Client satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, req fetch.PageRequest) (*fetch.PageResult, error)
}

// Config holds the controller configuration.
type Config struct {
	// Path is the endpoint path queried per submission (REQUIRED).
	Path string

	// PageSize is the result window requested per query.
	PageSize int

	// MinQueryLength is the minimum rune count before a fetch is issued.
	// Shorter queries transition to Idle with an empty result set.
	MinQueryLength int

	// Debounce is the quiet period applied by Submit. Zero disables
	// coalescing but still delivers asynchronously.
	Debounce time.Duration

	// OnUpdate, when set, is invoked with a snapshot after every state
	// transition. It must not call SubmitNow or Close synchronously;
	// Submit and Snapshot are safe.
	OnUpdate func(Snapshot)
}

// DefaultConfig returns a safe default configuration. The minimum length and
// debounce delay are presentation policy, tune them freely.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		PageSize:       10,
		MinQueryLength: 2,
		Debounce:       500 * time.Millisecond,
	}
}

// token identifies one dispatched fetch. Exactly one token is current per
// controller at any time; cancelling it detaches the in-flight request from
// the observable state.
type token struct {
	id     uuid.UUID
	cancel context.CancelFunc
}

// Controller owns a single logical search stream.
type Controller struct {
	fetcher   PageFetcher
	config    Config
	debouncer *debounce.Debouncer[string]
	logger    zerolog.Logger

	// notifyMu serializes state transitions with their OnUpdate delivery
	// so observers never see updates out of transition order.
	notifyMu sync.Mutex

	mu      sync.Mutex
	current *token
	snap    Snapshot
	closed  bool
}

// New creates a controller for one search stream. Tear it down with Close.
func New(fetcher PageFetcher, cfg Config) (*Controller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.MinQueryLength < 0 {
		cfg.MinQueryLength = 0
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}

	c := &Controller{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "query-controller").Str("endpoint", cfg.Path).Logger(),
		snap:    Snapshot{State: StateIdle},
	}
	c.debouncer = debounce.New(cfg.Debounce, c.SubmitNow)

	return c, nil
}

// Submit schedules query through the debounce timer. Rapid successive calls
// collapse to a single fetch for the last value.
func (c *Controller) Submit(query string) {
	c.debouncer.Schedule(query)
}

// SubmitNow processes query immediately, bypassing the debounce timer.
// The currently in-flight request, if any, is cancelled and its result will
// be discarded no matter when it arrives.
func (c *Controller) SubmitNow(query string) {
	query = strings.TrimSpace(query)

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	querySubmitsTotal.Inc()

	if len([]rune(query)) < c.config.MinQueryLength || query == "" {
		c.cancelCurrentLocked()
		c.snap = Snapshot{State: StateIdle, Query: query}
		querySkippedTotal.Inc()

		c.logger.Debug().
			Str("query", query).
			Msg("Query below minimum length, clearing results")

		c.publishLocked()
		return
	}

	c.cancelCurrentLocked()

	ctx, cancel := context.WithCancel(context.Background())
	tok := &token{id: uuid.New(), cancel: cancel}
	c.current = tok

	c.snap.State = StatePending
	c.snap.Query = query
	c.snap.Loading = true
	c.snap.Err = ""

	queryFetchesTotal.Inc()
	c.logger.Debug().
		Str("query", query).
		Str("token_id", tok.id.String()).
		Msg("Dispatching query fetch")

	go c.runFetch(ctx, tok, query)

	c.publishLocked()
}

// runFetch executes the fetch for tok and applies the result only if tok is
// still current when it completes. The currency check under the mutex is the
// authoritative guard; the context cancellation is advisory.
func (c *Controller) runFetch(ctx context.Context, tok *token, query string) {
	result, err := c.fetcher.FetchPage(ctx, fetch.PageRequest{
		Path:   c.config.Path,
		Search: query,
		Offset: 0,
		Limit:  c.config.PageSize,
	})

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed || c.current == nil || c.current.id != tok.id {
		queryStaleDiscardsTotal.Inc()
		c.logger.Debug().
			Str("query", query).
			Str("token_id", tok.id.String()).
			Msg("Discarding result for superseded token")
		c.mu.Unlock()
		return
	}

	// Current token settles; reset ownership.
	c.current = nil

	if err != nil {
		if fetch.IsCancelled(err) {
			// A current token is only cancelled by supersession or Close,
			// both of which are caught above.
			c.mu.Unlock()
			return
		}

		c.snap = Snapshot{
			State: StateFailed,
			Query: query,
			Err:   err.Error(),
		}

		c.logger.Warn().
			Err(err).
			Str("query", query).
			Str("token_id", tok.id.String()).
			Msg("Query fetch failed")

		c.publishLocked()
		return
	}

	c.snap = Snapshot{
		State:      StateSettled,
		Query:      query,
		Items:      result.Items,
		TotalCount: result.Total,
	}

	c.logger.Debug().
		Str("query", query).
		Str("token_id", tok.id.String()).
		Int("items", len(result.Items)).
		Int("total", result.Total).
		Msg("Query settled")

	c.publishLocked()
}

// Snapshot returns a copy of the observable state. The items slice is not
// aliased with controller-internal state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close tears the controller down: the debounce timer stops, the in-flight
// request is cancelled, and no further callbacks are delivered. Idempotent.
func (c *Controller) Close() {
	c.debouncer.Stop()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	c.cancelCurrentLocked()
	c.snap.State = StateCancelled
	c.snap.Loading = false

	c.logger.Debug().Msg("Controller closed")
}

// cancelCurrentLocked cancels and releases the current token, if any.
// Callers must hold c.mu.
func (c *Controller) cancelCurrentLocked() {
	if c.current == nil {
		return
	}

	querySupersededTotal.Inc()
	c.logger.Debug().
		Str("token_id", c.current.id.String()).
		Msg("Cancelling in-flight request")

	c.current.cancel()
	c.current = nil
}

// snapshotLocked copies the snapshot. Callers must hold c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	snap := c.snap
	if len(c.snap.Items) > 0 {
		snap.Items = append(snap.Items[:0:0], c.snap.Items...)
	}
	return snap
}

// publishLocked releases c.mu and delivers the snapshot to OnUpdate.
// Callers must hold both notifyMu and c.mu; notifyMu stays held so updates
// arrive in transition order.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	cb := c.config.OnUpdate
	c.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}
