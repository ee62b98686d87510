// Package testutil provides testing utilities for the query controller library.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Record is one item served by the mock API.
type Record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// listPayload is the wire shape of a mock list response.
type listPayload struct {
	Data  []Record `json:"data"`
	Total int      `json:"total"`
}

// MockAPI is a configurable mock paginated list server for testing.
// It understands offset/limit windows and a "query" search parameter that
// filters records by case-insensitive substring match.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	datasets map[string][]Record
	delays   map[string]time.Duration
	failures int

	// Tracking
	RequestCount     int
	SearchesReceived []string
}

// NewMockAPI creates a new mock list server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		datasets: make(map[string][]Record),
		delays:   make(map[string]time.Duration),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("query")

		mock.mu.Lock()
		mock.RequestCount++
		if search != "" {
			mock.SearchesReceived = append(mock.SearchesReceived, search)
		}
		fail := mock.failures > 0
		if fail {
			mock.failures--
		}
		delay := mock.delays[search]
		handler, hasHandler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "injected failure"}`))
			return
		}

		if hasHandler {
			handler(w, r)
			return
		}

		mock.listHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and injected failures.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.SearchesReceived = nil
	m.failures = 0
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SeedList populates the dataset served for path. IDs are assigned in order.
func (m *MockAPI) SeedList(path string, names ...string) {
	records := make([]Record, len(names))
	for i, name := range names {
		records[i] = Record{ID: i + 1, Name: name}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[path] = records
}

// SeedSequence populates path with count generated records (item-1..item-N).
func (m *MockAPI) SeedSequence(path string, count int) {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("item-%d", i+1)
	}
	m.SeedList(path, names...)
}

// SetSearchDelay delays responses for the given search term. Used to force
// completion orderings in supersession tests.
func (m *MockAPI) SetSearchDelay(term string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[term] = delay
}

// FailNext makes the next n requests return 500 before any dataset lookup.
func (m *MockAPI) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetSearchesReceived returns the search terms seen so far, in arrival order.
func (m *MockAPI) GetSearchesReceived() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.SearchesReceived))
	copy(out, m.SearchesReceived)
	return out
}

// listHandler serves a page window over the seeded dataset.
func (m *MockAPI) listHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	records, ok := m.datasets[r.URL.Path]
	m.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
		return
	}

	query := r.URL.Query()

	// Filter by search term first, then window.
	if search := query.Get("query"); search != "" {
		var filtered []Record
		needle := strings.ToLower(search)
		for _, rec := range records {
			if strings.Contains(strings.ToLower(rec.Name), needle) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	offset, limit, err := pageWindow(query)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error": %q}`, err.Error())
		return
	}

	total := len(records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	payload := listPayload{
		Data:  records[offset:end],
		Total: total,
	}
	if payload.Data == nil {
		payload.Data = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

// pageWindow extracts the page window from offset/limit or page/per_page
// parameters.
func pageWindow(query map[string][]string) (offset, limit int, err error) {
	get := func(key string) (int, bool, error) {
		vals, ok := query[key]
		if !ok || len(vals) == 0 {
			return 0, false, nil
		}
		n, err := strconv.Atoi(vals[0])
		if err != nil {
			return 0, true, fmt.Errorf("invalid %s: %s", key, vals[0])
		}
		return n, true, nil
	}

	if page, ok, err := get("page"); err != nil {
		return 0, 0, err
	} else if ok {
		perPage, _, err := get("per_page")
		if err != nil {
			return 0, 0, err
		}
		if perPage <= 0 {
			perPage = 10
		}
		if page < 1 {
			page = 1
		}
		return (page - 1) * perPage, perPage, nil
	}

	offset, _, err = get("offset")
	if err != nil {
		return 0, 0, err
	}
	limitVal, ok, err := get("limit")
	if err != nil {
		return 0, 0, err
	}
	if !ok || limitVal <= 0 {
		limitVal = 10
	}
	return offset, limitVal, nil
}
