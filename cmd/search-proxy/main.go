// Command search-proxy exposes a paginated upstream list endpoint through a
// small HTTP API, with health and Prometheus metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchstream/query-controller/pkg/fetch"
	"github.com/searchstream/query-controller/pkg/logging"
)

func main() {
	// Configuration from environment
	upstreamURL := getEnv("UPSTREAM_URL", "http://localhost:3001")
	upstreamPath := getEnv("UPSTREAM_PATH", "/api/users")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "search-proxy/0.1.0")
	pageSize := getEnvInt("PAGE_SIZE", 10)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	client, err := fetch.New(fetch.DefaultConfig(upstreamURL, userAgent))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fetch client")
	}

	http.HandleFunc("/health", healthHandler)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/search", searchHandler(client, upstreamPath, pageSize))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", upstreamURL+upstreamPath).
		Int("page_size", pageSize).
		Msg("Starting search proxy")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// searchResponse is the proxy's response shape.
type searchResponse struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
}

// searchHandler proxies GET /search?q=term&page=N to the upstream list
// endpoint.
func searchHandler(client *fetch.Client, path string, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := client.FetchPage(ctx, fetch.PageRequest{
			Path:   path,
			Search: r.URL.Query().Get("q"),
			Offset: (page - 1) * pageSize,
			Limit:  pageSize,
		})
		if err != nil {
			if fetch.IsCancelled(err) {
				// Client went away; nothing useful to write.
				return
			}

			status := http.StatusBadGateway
			var transportErr *fetch.TransportError
			if errors.As(err, &transportErr) && transportErr.Class == fetch.ErrorClassClient {
				status = http.StatusBadRequest
			}
			http.Error(w, fmt.Sprintf("upstream fetch failed: %v", err), status)
			return
		}

		resp := searchResponse{
			Data:  result.Items,
			Total: result.Total,
			Page:  page,
		}
		if resp.Data == nil {
			resp.Data = []json.RawMessage{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
