package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/handlers"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/middleware"
)

// NewRouter constructs a ServeMux with the feed API routes registered.
func NewRouter(h *handlers.Handler, metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/healthz", h.HealthCheck)

	if metricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetFeed(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/filters", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			h.SetFilters(w, r)
		} else if r.Method == http.MethodDelete {
			h.ClearFilters(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/sort", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			h.SetSort(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/page", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			h.SetPage(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/ingestion", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetIngestion(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/ingestion/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.StartIngestion(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/ingestion/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.StopIngestion(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/aggregates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetAggregates(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/feed/aggregates/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.RefreshAggregates(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return middleware.RequestID(mux)
}
