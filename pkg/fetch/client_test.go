package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				BaseURL:   "https://api.example.com",
				UserAgent: "TestApp/1.0.0 (test@example.com)",
			},
			expectError: false,
		},
		{
			name: "missing base URL",
			config: Config{
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "base URL is required",
		},
		{
			name: "missing user agent",
			config: Config{
				BaseURL: "https://api.example.com",
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("https://api.example.com", "TestApp/1.0.0")

	if cfg.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://api.example.com")
	}
	if cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "TestApp/1.0.0")
	}
	if cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v, should be > 0", cfg.Timeout)
	}
	if cfg.ParamStyle != OffsetParams {
		t.Errorf("ParamStyle = %q, want %q", cfg.ParamStyle, OffsetParams)
	}
	if cfg.SearchParam != "query" {
		t.Errorf("SearchParam = %q, want %q", cfg.SearchParam, "query")
	}
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client, err := New(DefaultConfig(serverURL, "TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestFetchPage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("offset"); got != "0" {
			t.Errorf("offset = %q, want %q", got, "0")
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want %q", got, "10")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [{"id": 1}, {"id": 2}], "total": 42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	if len(result.Items) != 2 {
		t.Errorf("Items count = %d, want 2", len(result.Items))
	}
	if result.Total != 42 {
		t.Errorf("Total = %d, want 42", result.Total)
	}
}

func TestFetchPage_TotalPagesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [{"id": 1}], "total_pages": 4}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  6,
	})
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	if result.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", result.TotalPages)
	}
	// Upper bound derived from total_pages * limit.
	if result.Total != 24 {
		t.Errorf("Total = %d, want 24", result.Total)
	}
}

func TestFetchPage_ExplicitZeroTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [], "total": 0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	if len(result.Items) != 0 {
		t.Errorf("Items count = %d, want 0", len(result.Items))
	}
	if result.Total != 0 {
		t.Errorf("Total = %d, want 0", result.Total)
	}
}

func TestFetchPage_UserAgentSet(t *testing.T) {
	userAgentReceived := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgentReceived = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [], "total": 0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	if userAgentReceived != "TestApp/1.0.0" {
		t.Errorf("User-Agent = %q, want %q", userAgentReceived, "TestApp/1.0.0")
	}
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   ErrorClass
	}{
		{"client error", 404, ErrorClassClient},
		{"forbidden", 403, ErrorClassClient},
		{"server error", 500, ErrorClassServer},
		{"bad gateway", 502, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.FetchPage(context.Background(), PageRequest{
				Path:   "/api/users",
				Offset: 0,
				Limit:  10,
			})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var transportErr *TransportError
			if !errors.As(err, &transportErr) {
				t.Fatalf("Expected *TransportError, got %T: %v", err, err)
			}
			if transportErr.Class != tt.expected {
				t.Errorf("Class = %q, want %q", transportErr.Class, tt.expected)
			}
			if transportErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", transportErr.StatusCode, tt.statusCode)
			}
		})
	}
}

func TestFetchPage_NetworkError(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}
	if transportErr.Class != ErrorClassNetwork {
		t.Errorf("Class = %q, want %q", transportErr.Class, ErrorClassNetwork)
	}
	if IsCancelled(err) {
		t.Error("Network error must not be reported as cancelled")
	}
}

func TestFetchPage_Cancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.FetchPage(ctx, PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if !IsCancelled(err) {
		t.Errorf("Expected cancelled outcome, got %v", err)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		t.Error("Cancellation must not be reported as *TransportError")
	}
}

func TestFetchPage_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}
	if transportErr.Class != ErrorClassClient {
		t.Errorf("Class = %q, want %q", transportErr.Class, ErrorClassClient)
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [], "total": 0}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL, "TestApp/1.0.0")
	cfg.Timeout = 20 * time.Millisecond
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.FetchPage(context.Background(), PageRequest{
		Path:   "/api/users",
		Offset: 0,
		Limit:  10,
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	// Transport-level timeout is a network failure, not a cancellation:
	// the caller's context was never cancelled.
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}
	if transportErr.Class != ErrorClassNetwork {
		t.Errorf("Class = %q, want %q", transportErr.Class, ErrorClassNetwork)
	}
}
