// Package main provides the batch profile gatherer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"go.ngs.io/gridprofiles/internal/adapter/store"
	"go.ngs.io/gridprofiles/internal/adapter/store/csv"
	"go.ngs.io/gridprofiles/internal/adapter/store/parquet"
	"go.ngs.io/gridprofiles/internal/config"
	"go.ngs.io/gridprofiles/internal/domain"
	"go.ngs.io/gridprofiles/internal/usecase"
)

func main() {
	// Command line flags
	source := flag.String("source", "wind", "Profile source: wind or solar")
	startStr := flag.String("start", "", "First day, YYYY-MM-DD")
	endStr := flag.String("end", "", "Last day (inclusive), YYYY-MM-DD")
	plantsPath := flag.String("plants", "", "Plant table CSV (default: PLANTS_CSV)")
	outDir := flag.String("out", "", "Output directory (default: OUTPUT_DIR)")
	format := flag.String("format", "", "Output format: csv, parquet or both (default: OUTPUT_FORMAT)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *plantsPath != "" {
		cfg.PlantsCSV = *plantsPath
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *format != "" {
		cfg.OutputFormat = *format
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	start, err := domain.ParseDate(*startStr)
	if err != nil {
		log.Fatalf("Invalid -start %q (expected YYYY-MM-DD): %v", *startStr, err)
	}
	end, err := domain.ParseDate(*endStr)
	if err != nil {
		log.Fatalf("Invalid -end %q (expected YYYY-MM-DD): %v", *endStr, err)
	}

	if err := run(context.Background(), cfg, *source, start, end); err != nil {
		log.Fatalf("Gather failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, source string, start, end time.Time) error {
	plants := csv.NewPlantStore(cfg.PlantsCSV)
	writers, err := outputWriters(cfg.OutputFormat)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch source {
	case "wind":
		windPlants, err := plants.LoadPlants(domain.CategoryWind, domain.CategoryWindOffshore)
		if err != nil {
			return err
		}
		curves, err := cfg.PowerCurves()
		if err != nil {
			return fmt.Errorf("failed to load power curves: %w", err)
		}
		uc := usecase.NewWindProfileUseCase(cfg.WindFetcherFactory(), curves, cfg.WindOptions())
		profile, err := uc.Execute(ctx, usecase.ProfileRequest{Start: start, End: end, Plants: windPlants})
		if err != nil {
			return err
		}

		base := outputBase(cfg.OutputDir, source, start, end, profile.RunID)
		var result *multierror.Error
		for _, w := range writers {
			path := base + "." + w.Ext()
			if err := w.WriteWind(path, profile.Rows); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			log.Printf("Wrote %d rows to %s", len(profile.Rows), path)
		}
		missingPath := base + "_missing.txt"
		if err := csv.WriteMissing(missingPath, profile.Missing); err != nil {
			result = multierror.Append(result, err)
		} else {
			log.Printf("Wrote %d missing hours to %s", len(profile.Missing), missingPath)
		}
		return result.ErrorOrNil()

	case "solar":
		solarPlants, err := plants.LoadPlants(domain.CategorySolar)
		if err != nil {
			return err
		}
		wtk, err := cfg.IrradianceSource()
		if err != nil {
			return err
		}
		profile, err := usecase.NewSolarProfileUseCase(wtk, cfg.SolarOptions()).Execute(ctx,
			usecase.ProfileRequest{Start: start, End: end, Plants: solarPlants})
		if err != nil {
			return err
		}

		base := outputBase(cfg.OutputDir, source, start, end, profile.RunID)
		var result *multierror.Error
		for _, w := range writers {
			path := base + "." + w.Ext()
			if err := w.WriteSolar(path, profile.Rows); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			log.Printf("Wrote %d rows to %s", len(profile.Rows), path)
		}
		return result.ErrorOrNil()

	default:
		return fmt.Errorf("unknown source %q (use wind or solar)", source)
	}
}

// outputWriters maps an output format to its writers.
func outputWriters(format string) ([]store.ProfileWriter, error) {
	switch format {
	case config.FormatCSV:
		return []store.ProfileWriter{csv.NewWriter()}, nil
	case config.FormatParquet:
		return []store.ProfileWriter{parquet.NewWriter()}, nil
	case config.FormatBoth:
		return []store.ProfileWriter{csv.NewWriter(), parquet.NewWriter()}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// outputBase returns the output path without extension.
func outputBase(dir, source string, start, end time.Time, runID string) string {
	name := fmt.Sprintf("%s_%s_%s_%s", source, start.Format(domain.DateLayout), end.Format(domain.DateLayout), runID)
	return filepath.Join(dir, name)
}
