package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NavarchProject/perfdash/pkg/config"
	"github.com/NavarchProject/perfdash/pkg/dashboard"
	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
)

func testMux(t *testing.T, cfg *config.Config) (*http.ServeMux, store.DB) {
	t.Helper()

	database := store.NewInMemDB()
	t.Cleanup(func() { database.Close() })

	tps := 100.0
	if err := database.InsertRun(context.Background(), &perf.Record{ReleaseTag: "v1", AvgTPS: &tps}); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux, err := newMux(cfg, database, logger)
	if err != nil {
		t.Fatalf("newMux() error = %v", err)
	}
	return mux, database
}

func TestHealthEndpoints(t *testing.T) {
	mux, _ := testMux(t, config.Default())

	t.Run("healthz_returns_ok", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "ok" {
			t.Errorf("Expected body 'ok', got '%s'", w.Body.String())
		}
	})

	t.Run("readyz_returns_ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/readyz", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "ready" {
			t.Errorf("Expected body 'ready', got '%s'", w.Body.String())
		}
	})

	t.Run("healthz_supports_HEAD", func(t *testing.T) {
		req := httptest.NewRequest("HEAD", "/healthz", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestReadyzFailsOnClosedStore(t *testing.T) {
	database, err := store.NewSQLiteDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	database.Close()

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()
	readyzHandler(database, slog.New(slog.NewTextHandler(io.Discard, nil)))(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestRoutes(t *testing.T) {
	mux, _ := testMux(t, config.Default())

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/api/perf-runs", http.StatusOK, `"release_tag":"v1"`},
		{"/api/perf-runs/summary", http.StatusOK, `"total_runs":1`},
		{"/ui/", http.StatusOK, "Performance Dashboard"},
		{"/ui/search", http.StatusOK, "releaseTagSelect"},
		{"/", http.StatusFound, ""},
		{"/metrics", http.StatusOK, "perfdash_runs_total 1"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %q, got %s", tt.contains, w.Body.String())
			}
		})
	}
}

func TestMetricsCountAPIRequests(t *testing.T) {
	mux, _ := testMux(t, config.Default())

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/perf-runs/42", nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), `perfdash_api_requests_total{code="404",route="get"} 1`) {
		t.Errorf("expected the 404 to be counted, got:\n%s", w.Body.String())
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Metrics = false
	mux, _ := testMux(t, cfg)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDashboardConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
dashboard:
  charts: [latencyChart]
  table: manual
  filter_mode: client
  auto_select: false
  page_size: 50
`))
	if err != nil {
		t.Fatal(err)
	}

	got := dashboardConfig(cfg)
	if got.Table != dashboard.TableManual || got.FilterMode != dashboard.FilterClient {
		t.Errorf("unexpected strategies: %+v", got)
	}
	if got.AutoSelect || got.PageSize != 50 || len(got.Charts) != 1 {
		t.Errorf("unexpected dashboard config: %+v", got)
	}
}

func TestRetryConfig(t *testing.T) {
	if got := retryConfig(0).MaxAttempts; got != 1 {
		t.Errorf("retryConfig(0).MaxAttempts = %d, want 1", got)
	}
	if got := retryConfig(2).MaxAttempts; got != 3 {
		t.Errorf("retryConfig(2).MaxAttempts = %d, want 3", got)
	}
}
