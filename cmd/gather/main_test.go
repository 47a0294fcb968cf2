package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.ngs.io/gridprofiles/internal/config"
)

func TestOutputWriters(t *testing.T) {
	tests := []struct {
		format string
		exts   []string
	}{
		{config.FormatCSV, []string{"csv"}},
		{config.FormatParquet, []string{"parquet"}},
		{config.FormatBoth, []string{"csv", "parquet"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			writers, err := outputWriters(tt.format)
			if err != nil {
				t.Fatalf("outputWriters: %v", err)
			}
			if len(writers) != len(tt.exts) {
				t.Fatalf("expected %d writers, got %d", len(tt.exts), len(writers))
			}
			for i, w := range writers {
				if w.Ext() != tt.exts[i] {
					t.Errorf("writer %d: ext %s, want %s", i, w.Ext(), tt.exts[i])
				}
			}
		})
	}

	if _, err := outputWriters("xlsx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputBase(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2016, 1, 31, 0, 0, 0, 0, time.UTC)

	got := outputBase("out", "wind", start, end, "abc")
	want := filepath.Join("out", "wind_2016-01-01_2016-01-31_abc")
	if got != want {
		t.Errorf("outputBase = %s, want %s", got, want)
	}
}

// TestRun_UnknownSource tests that an unknown source is rejected.
func TestRun_UnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.PlantsCSV = filepath.Join(t.TempDir(), "plant.csv")
	if err := os.WriteFile(cfg.PlantsCSV, []byte("plant_id,lat,lon,Pmax,type\n1,35,-100,10,wind\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := run(context.Background(), cfg, "hydro", day, day); err == nil {
		t.Error("expected error for unknown source")
	}
}
