package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/gridprofiles/internal/adapter/hsds"
	"go.ngs.io/gridprofiles/internal/adapter/powercurve"
	"go.ngs.io/gridprofiles/internal/domain"
)

// IrradianceSource resolves grid cells and reads hourly GHI series.
type IrradianceSource interface {
	Locate(ctx context.Context, p domain.LatLon) (domain.GridCell, error)
	GHI(ctx context.Context, cell domain.GridCell, first, last time.Time) ([]float64, error)
}

// SolarProfile is the result of a solar run.
type SolarProfile struct {
	RunID     string            `json:"run_id"`
	Hours     int               `json:"hours"`
	Locations int               `json:"locations"`
	Rows      []domain.SolarRow `json:"-"`
}

// SolarOptions tunes a solar run.
type SolarOptions struct {
	ProgressEvery int // Locations between progress log lines.
}

// DefaultSolarOptions returns the default solar settings.
func DefaultSolarOptions() SolarOptions {
	return SolarOptions{ProgressEvery: DefaultProgressEvery}
}

// SolarProfileUseCase assembles hourly solar power profiles.
type SolarProfileUseCase struct {
	source IrradianceSource
	opts   SolarOptions
}

// NewSolarProfileUseCase creates a new solar profile use case.
func NewSolarProfileUseCase(source IrradianceSource, opts SolarOptions) *SolarProfileUseCase {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &SolarProfileUseCase{source: source, opts: opts}
}

// Execute performs a solar profile run. Plants sharing coordinates share one
// GHI read; each plant's output is the normalized series scaled by its Pmax.
func (uc *SolarProfileUseCase) Execute(ctx context.Context, req ProfileRequest) (*SolarProfile, error) {
	if err := req.validate(domain.CategorySolar); err != nil {
		return nil, err
	}

	hours := domain.Hours(req.Start, req.End)
	first, last := hours[0], hours[len(hours)-1]
	for _, t := range []time.Time{first, last} {
		if _, err := hsds.HourIndex(t); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	groups := domain.GroupByLocation(req.Plants)
	runID := uuid.NewString()
	log.Printf("[%s] solar run: %d plants at %d locations, %d hours (%s to %s)", runID, len(req.Plants),
		len(groups), len(hours), req.Start.Format(domain.DateLayout), req.End.Format(domain.DateLayout))

	rows := make([]domain.SolarRow, 0, len(req.Plants)*len(hours))
	for gi, g := range groups {
		cell, err := uc.source.Locate(ctx, g.Location)
		if err != nil {
			return nil, fmt.Errorf("location (%.4f, %.4f): %w", g.Location.Lat, g.Location.Lon, err)
		}
		ghi, err := uc.source.GHI(ctx, cell, first, last)
		if err != nil {
			return nil, fmt.Errorf("GHI at cell (%d, %d): %w", cell.Row, cell.Col, err)
		}
		if len(ghi) != len(hours) {
			return nil, fmt.Errorf("GHI at cell (%d, %d): expected %d hours, got %d", cell.Row, cell.Col, len(hours), len(ghi))
		}

		norm := powercurve.NormalizeIrradiance(ghi)
		for _, m := range g.Members {
			for h, t := range hours {
				rows = append(rows, domain.SolarRow{
					Pout:    float32(norm[h] * m.Pmax),
					PlantID: m.ID,
					Time:    t,
					TSID:    int32(h + 1),
				})
			}
		}

		if (gi+1)%uc.opts.ProgressEvery == 0 {
			log.Printf("[%s] %d/%d locations processed", runID, gi+1, len(groups))
		}
	}

	domain.SortSolarRows(rows)
	log.Printf("[%s] solar run done: %d rows", runID, len(rows))
	return &SolarProfile{RunID: runID, Hours: len(hours), Locations: len(groups), Rows: rows}, nil
}

// IsInvalidRequest reports whether err was caused by the request itself.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
