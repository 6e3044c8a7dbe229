package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports whether the service's backends are reachable.
type HealthFunc func(ctx context.Context) error

// NewServer builds the side server exposing /metrics and /healthz.
func NewServer(port string, health HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if health != nil {
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, "unhealthy: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartServer starts the metrics server in the background. Callers stop it
// with Shutdown.
func StartServer(port string, health HealthFunc) *http.Server {
	srv := NewServer(port, health)
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
