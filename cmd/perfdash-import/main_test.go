package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
)

func TestRun_SQLite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "runs.csv")
	dbPath := filepath.Join(dir, "runs.db")

	csv := "release_tag,row_no,avg_tps\nv1,1,100\nv1,x,50\nv2,2,120\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), csvPath, store.DriverSQLite, dbPath, nil, logger); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	database, err := store.NewSQLiteDB(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	runs, err := database.ListRuns(context.Background(), perf.Criteria{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 imported runs, got %d", len(runs))
	}
	if runs[0].ReleaseTag != "v1" || runs[1].ReleaseTag != "v2" {
		t.Errorf("unexpected runs: %s, %s", runs[0].ReleaseTag, runs[1].ReleaseTag)
	}
}

func TestRun_Stdin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	in := strings.NewReader("release_tag\nv1\n")
	if err := run(context.Background(), "-", store.DriverMemory, "", in, logger); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRun_MissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), store.DriverMemory, "", nil, logger)
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestRootCmd_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := rootCmd()
	cmd.SetArgs([]string{"--driver", "sqlite", "runs.csv"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected DSN error, got %v", err)
	}
}
