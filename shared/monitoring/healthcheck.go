package monitoring

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"insight-stack/internal/models"
)

// StatsSource supplies store counters for the status endpoint. Typically the
// trend-watcher agent, backed by the content store.
type StatsSource interface {
	Stats(ctx context.Context) (*models.CacheStats, error)
}

// HealthServer exposes /health for probes and /status for humans. Status
// includes the content store counters when a StatsSource is wired.
type HealthServer struct {
	monitor *Monitor
	stats   StatsSource
	port    int
	mux     *http.ServeMux
}

func NewHealthServer(monitor *Monitor, stats StatsSource, port int) *HealthServer {
	if port == 0 {
		port = 8080
	}
	h := &HealthServer{
		monitor: monitor,
		stats:   stats,
		port:    port,
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("/health", h.healthHandler)
	h.mux.HandleFunc("/status", h.statusHandler)
	return h
}

// Handler returns the server's routes for embedding or testing.
func (h *HealthServer) Handler() http.Handler {
	return h.mux
}

func (h *HealthServer) Start() {
	log.Printf("Health check server starting on port %d", h.port)
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", h.port), h.mux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s\n", h.monitor.GetStatusSummary())

	if h.stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		fmt.Fprintf(w, "store stats unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(w, "videos: %d\n", stats.TotalVideos)
	fmt.Fprintf(w, "transcripts: %d\n", stats.TotalTranscripts)
	fmt.Fprintf(w, "cached analyses: %d\n", stats.CachedAnalyses)
	fmt.Fprintf(w, "cache hit rate: %.1f%%\n", stats.CacheHitRate)
}
