package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"insight-stack/internal/models"
)

type fakeStatsSource struct {
	stats *models.CacheStats
	err   error
}

func (f *fakeStatsSource) Stats(ctx context.Context) (*models.CacheStats, error) {
	return f.stats, f.err
}

func serveRequest(t *testing.T, server *HealthServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	monitor := NewMonitor()
	server := NewHealthServer(monitor, nil, 8080)

	resp := serveRequest(t, server, "/health")
	if resp.Code != http.StatusOK {
		t.Errorf("Fresh monitor should be healthy, got %d", resp.Code)
	}

	monitor.RecordCriticalFailure(errors.New("run blew up"), time.Second)
	resp = serveRequest(t, server, "/health")
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after critical failure, got %d", resp.Code)
	}

	monitor.RecordSuccess("2 channels", time.Second)
	resp = serveRequest(t, server, "/health")
	if resp.Code != http.StatusOK {
		t.Errorf("Expected 200 after recovery, got %d", resp.Code)
	}
}

func TestStatusEndpointIncludesStoreStats(t *testing.T) {
	monitor := NewMonitor()
	stats := &fakeStatsSource{
		stats: &models.CacheStats{
			TotalVideos:      12,
			TotalTranscripts: 10,
			CachedAnalyses:   6,
			CacheHitRate:     50,
		},
	}
	server := NewHealthServer(monitor, stats, 8080)

	resp := serveRequest(t, server, "/status")
	if resp.Code != http.StatusOK {
		t.Fatalf("Status endpoint returned %d", resp.Code)
	}
	body := resp.Body.String()
	for _, fragment := range []string{"videos: 12", "transcripts: 10", "cached analyses: 6", "cache hit rate: 50.0%"} {
		if !strings.Contains(body, fragment) {
			t.Errorf("Status body missing %q:\n%s", fragment, body)
		}
	}
}

func TestStatusEndpointWithoutStatsSource(t *testing.T) {
	server := NewHealthServer(NewMonitor(), nil, 8080)

	resp := serveRequest(t, server, "/status")
	if resp.Code != http.StatusOK {
		t.Fatalf("Status endpoint returned %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "No runs yet") {
		t.Errorf("Status body missing monitor summary:\n%s", resp.Body.String())
	}
}

func TestStatusEndpointStatsError(t *testing.T) {
	server := NewHealthServer(NewMonitor(), &fakeStatsSource{err: errors.New("db locked")}, 8080)

	resp := serveRequest(t, server, "/status")
	if resp.Code != http.StatusOK {
		t.Fatalf("Status endpoint returned %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "store stats unavailable") {
		t.Errorf("Status body missing error note:\n%s", resp.Body.String())
	}
}
