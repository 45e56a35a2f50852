package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/region"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(t *testing.T, cfg *config.Config) Deps {
	t.Helper()
	logger := discardLogger()

	sales := []models.Sale{{
		Product:      "Cadeira",
		Category:     "moveis",
		Price:        decimal.NewFromInt(250),
		Freight:      decimal.NewFromInt(12),
		PurchaseDate: time.Date(2021, time.March, 2, 0, 0, 0, 0, time.UTC),
		Seller:       "Ana",
		Location:     "RS",
		Rating:       5,
		PaymentType:  "boleto",
		Installments: 1,
		Region:       region.South,
	}}

	metrics, err := observability.NewMetrics(cfg.Telemetry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = metrics.Shutdown(context.Background()) })

	analytics := services.NewAnalytics(&dataset.Dataset{Sales: sales}, logger, metrics)
	return Deps{
		Config:      cfg,
		Analytics:   analytics,
		Sessions:    session.NewStore(cfg.Session),
		Exporter:    export.NewExporter(cache.NewLRUCache[[]byte](cfg.Export.CacheSize, cfg.Export.CacheTTL), metrics, logger),
		Metrics:     metrics,
		RateLimiter: middleware.NewRateLimiter(cfg.Security),
		Logger:      logger,
	}
}

func TestServer_Routes(t *testing.T) {
	cfg := config.Default()
	cfg.Security.EnableRateLimit = false
	srv := NewServer(testDeps(t, cfg))

	tests := []struct {
		method, path string
		status       int
		contentType  string
	}{
		{http.MethodGet, "/", http.StatusOK, "text/html"},
		{http.MethodGet, "/raw", http.StatusOK, "text/html"},
		{http.MethodGet, "/health", http.StatusOK, "application/json"},
		{http.MethodGet, "/admin/stats", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/report", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/report/", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/locations/revenue", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/months/count", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/categories/revenue", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/sellers", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/options", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/regions", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/session/filters", http.StatusOK, "application/json"},
		{http.MethodGet, "/sse/dashboard", http.StatusOK, "text/event-stream"},
		{http.MethodGet, "/sse/raw", http.StatusOK, "text/event-stream"},
		{http.MethodGet, "/export.csv", http.StatusOK, "text/csv"},
		{http.MethodGet, "/export.xlsx", http.StatusOK, "application/vnd.openxmlformats"},
		{http.MethodGet, "/metrics", http.StatusOK, "text/plain"},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
		{http.MethodDelete, "/api/report", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.contentType != "" {
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType),
					"content type %q", rec.Header().Get("Content-Type"))
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestServer_MetricsExposeRequests(t *testing.T) {
	srv := NewServer(testDeps(t, config.Default()))

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/report", nil))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests")
	assert.Contains(t, body, "sales_pipeline_runs")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Security.RateLimitRPS = 1
	cfg.Security.RateLimitBurst = 1
	srv := NewServer(testDeps(t, cfg))

	statuses := make([]int, 3)
	for i := range statuses {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		srv.ServeHTTP(rec, req)
		statuses[i] = rec.Code
	}
	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Contains(t, statuses[1:], http.StatusTooManyRequests)
}

func newGraceful(t *testing.T) (*GracefulServer, net.Listener) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	httpServer := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	return NewGracefulServer(httpServer, discardLogger(), cfg), ln
}

func TestGracefulServer_RunsHooksOnCancel(t *testing.T) {
	gs, ln := newGraceful(t)

	var ran atomic.Int32
	gs.RegisterShutdownHook("first", func(ctx context.Context) error { ran.Add(1); return nil })
	gs.RegisterShutdownHook("second", func(ctx context.Context) error { ran.Add(1); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, int32(2), ran.Load())
}

func TestGracefulServer_JoinsHookErrors(t *testing.T) {
	gs, ln := newGraceful(t)

	boom := errors.New("boom")
	gs.RegisterShutdownHook("tracing", func(ctx context.Context) error { return boom })
	gs.RegisterShutdownHook("metrics", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gs.Serve(ctx, ln)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "tracing")
}
