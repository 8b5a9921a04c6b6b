package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NavarchProject/perfdash/pkg/dashboard"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  address: ":9090"
storage:
  driver: sqlite
  dsn: /var/lib/perfdash/runs.db
dashboard:
  charts: [tpsChart, failRateChart]
  table: manual
  filter_mode: client
client:
  timeout: 5s
  retries: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("expected address :9090, got %s", cfg.Server.Address)
	}
	if !cfg.Server.Metrics {
		t.Error("expected metrics to stay enabled by default")
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %s", cfg.Storage.Driver)
	}
	if diff := cmp.Diff([]string{"tpsChart", "failRateChart"}, cfg.Dashboard.Charts); diff != "" {
		t.Errorf("charts mismatch (-want +got):\n%s", diff)
	}
	if cfg.Dashboard.Table != dashboard.TableManual {
		t.Errorf("expected table manual, got %s", cfg.Dashboard.Table)
	}
	if cfg.Dashboard.FilterMode != dashboard.FilterClient {
		t.Errorf("expected filter mode client, got %s", cfg.Dashboard.FilterMode)
	}
	if !cfg.Dashboard.AutoSelect {
		t.Error("expected auto_select default true")
	}
	if cfg.Dashboard.PageSize != 20 {
		t.Errorf("expected default page size 20, got %d", cfg.Dashboard.PageSize)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.Client.Timeout)
	}
	if cfg.Client.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Client.Retries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty config should equal defaults (-want +got):\n%s", diff)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  metrics: false\ndashboard:\n  auto_select: false\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Server.Metrics {
		t.Error("expected metrics disabled")
	}
	if cfg.Dashboard.AutoSelect {
		t.Error("expected auto_select disabled")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Address != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Address)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if diff := cmp.Diff([]string{"tpsChart", "latencyChart", "failRateChart"}, cfg.Dashboard.Charts); diff != "" {
		t.Errorf("charts mismatch (-want +got):\n%s", diff)
	}
	if cfg.Dashboard.Table != dashboard.TableWidget || cfg.Dashboard.FilterMode != dashboard.FilterServer {
		t.Errorf("unexpected strategies %s/%s", cfg.Dashboard.Table, cfg.Dashboard.FilterMode)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown driver", "storage:\n  driver: oracle\n", "unknown driver"},
		{"sqlite without dsn", "storage:\n  driver: sqlite\n", "dsn is required"},
		{"postgres without dsn", "storage:\n  driver: postgres\n", "dsn is required"},
		{"unknown chart", "dashboard:\n  charts: [perfChart]\n", "unknown chart"},
		{"unknown table", "dashboard:\n  table: grid\n", "unknown table strategy"},
		{"unknown filter mode", "dashboard:\n  filter_mode: hybrid\n", "unknown filter mode"},
		{"negative page size", "dashboard:\n  page_size: -1\n", "page_size"},
		{"negative retries", "client:\n  retries: -1\n", "retries"},
		{"bad yaml", "server: [", "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
