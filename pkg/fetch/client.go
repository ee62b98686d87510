package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_requests_total",
		Help: "Total page fetches by endpoint and status",
	}, []string{"endpoint", "status"})

	fetchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetch_request_duration_seconds",
		Help:    "Page fetch duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_errors_total",
		Help: "Total fetch failures by class",
	}, []string{"class"})

	fetchCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_cancelled_total",
		Help: "Total fetches aborted through their context",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host of the upstream API (REQUIRED).
	BaseURL string

	// UserAgent header sent with every request (REQUIRED).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout is the transport-level timeout per request.
	Timeout time.Duration

	// ParamStyle selects offset/limit or page/per_page encoding.
	ParamStyle ParamStyle

	// SearchParam is the query parameter carrying the search term.
	SearchParam string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:     baseURL,
		UserAgent:   userAgent,
		Timeout:     30 * time.Second,
		ParamStyle:  OffsetParams,
		SearchParam: "query",
	}
}

// PageResult is the decoded body of a successful page fetch.
type PageResult struct {
	// Items are the raw list entries, in endpoint order.
	Items []json.RawMessage

	// Total is the total item count across all pages. Zero means the
	// endpoint did not report one.
	Total int

	// TotalPages is the total page count, when the endpoint reports pages
	// instead of an item count.
	TotalPages int
}

// Client fetches pages from a paginated JSON list endpoint.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ParamStyle == "" {
		cfg.ParamStyle = OffsetParams
	}
	if cfg.SearchParam == "" {
		cfg.SearchParam = "query"
	}

	logger := log.With().Str("component", "fetch-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// pagePayload mirrors the endpoint body. Total is a pointer so "total": 0 is
// distinguishable from an absent field.
type pagePayload struct {
	Data       []json.RawMessage `json:"data"`
	Total      *int              `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// FetchPage fetches a single page. Cancellation through ctx settles as
// ErrCancelled; every other failure settles as *TransportError.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	u, err := c.requestURL(req)
	if err != nil {
		return nil, &TransportError{Class: ErrorClassClient, Message: err.Error(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Class: ErrorClassClient, Message: "create request", Err: err}
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	endpoint := req.Path
	startTime := time.Now()
	defer func() {
		fetchRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("search", req.Search).
		Int("offset", req.Offset).
		Int("limit", req.Limit).
		Msg("Fetching page")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			fetchCancelledTotal.Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("Fetch cancelled")
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}

		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Fetch failed")
		return nil, &TransportError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	fetchRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		fetchErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Fetch returned error status")

		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Class:      errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			fetchCancelledTotal.Inc()
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{Class: ErrorClassNetwork, Message: "read body", Err: err}
	}

	var payload pagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &TransportError{Class: ErrorClassClient, Message: "decode body", Err: err}
	}

	result := &PageResult{
		Items:      payload.Data,
		TotalPages: payload.TotalPages,
	}
	if payload.Total != nil {
		result.Total = *payload.Total
	} else if payload.TotalPages > 0 {
		// Endpoints reporting pages instead of items: the last page may be
		// partial, so this is an upper bound.
		result.Total = payload.TotalPages * req.Limit
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("items", len(result.Items)).
		Int("total", result.Total).
		Msg("Page fetched")

	return result, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
