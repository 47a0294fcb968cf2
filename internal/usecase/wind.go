package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"go.ngs.io/gridprofiles/internal/adapter/gridindex"
	"go.ngs.io/gridprofiles/internal/adapter/noaa"
	"go.ngs.io/gridprofiles/internal/adapter/powercurve"
	"go.ngs.io/gridprofiles/internal/domain"
)

// WindFetcher retrieves hourly RAP snapshots.
type WindFetcher interface {
	Hours(start, end time.Time) []noaa.Slot
	URL(slot noaa.Slot, fallback bool) string
	Fetch(ctx context.Context, slot noaa.Slot) (*domain.WindSnapshot, error)
}

// WindFetcherFactory creates a fetcher for a query box.
type WindFetcherFactory func(box noaa.BoundingBox) (WindFetcher, error)

// WindOptions tunes the wind pipeline.
type WindOptions struct {
	BoxMargin     float64 // Degrees added around the plant extent.
	ProgressEvery int     // Hours between progress log lines.
	Metric        gridindex.Metric
}

// DefaultWindOptions matches the RAP-130 workflow: 1 degree margin and the
// angular metric on unit-sphere embeddings.
func DefaultWindOptions() WindOptions {
	return WindOptions{
		BoxMargin:     1,
		ProgressEvery: DefaultProgressEvery,
		Metric:        gridindex.Angular,
	}
}

// WindProfile is the result of a wind run.
type WindProfile struct {
	RunID   string           `json:"run_id"`
	Hours   int              `json:"hours"`
	Rows    []domain.WindRow `json:"-"`
	Missing []string         `json:"missing"`
}

// WindProfileUseCase assembles hourly wind power profiles.
type WindProfileUseCase struct {
	newFetcher WindFetcherFactory
	curves     *powercurve.Evaluator
	opts       WindOptions
}

// NewWindProfileUseCase creates a new wind profile use case.
func NewWindProfileUseCase(newFetcher WindFetcherFactory, curves *powercurve.Evaluator, opts WindOptions) *WindProfileUseCase {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &WindProfileUseCase{
		newFetcher: newFetcher,
		curves:     curves,
		opts:       opts,
	}
}

// cellIndex is the plant-to-cell mapping of a run. It starts unresolved and
// is resolved from the first snapshot that is successfully retrieved.
type cellIndex struct {
	targets  []gridindex.Target
	metric   gridindex.Metric
	resolved *gridindex.Index
}

func (c *cellIndex) resolve(grid domain.GridCoordinates) (*gridindex.Index, error) {
	if c.resolved != nil {
		return c.resolved, nil
	}
	ix, err := gridindex.Build(c.targets, grid, c.metric)
	if err != nil {
		return nil, err
	}
	c.resolved = ix
	log.Printf("Grid index resolved: %d plants on %d cells (%s metric)", ix.Len(), grid.Len(), ix.Metric())
	return ix, nil
}

// Execute performs a wind profile run. Unavailable hours yield NaN rows and a
// missing-list entry; transport failures abort the run.
func (uc *WindProfileUseCase) Execute(ctx context.Context, req ProfileRequest) (*WindProfile, error) {
	if err := req.validate(domain.CategoryWind, domain.CategoryWindOffshore); err != nil {
		return nil, err
	}

	box, err := noaa.BoxAround(req.Plants, uc.opts.BoxMargin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	fetcher, err := uc.newFetcher(box)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	labels := make([]string, len(req.Plants))
	for i, p := range req.Plants {
		labels[i] = powercurve.CurveLabel(p)
	}

	runID := uuid.NewString()
	slots := fetcher.Hours(req.Start, req.End)
	log.Printf("[%s] wind run: %d plants, %d hours (%s to %s)", runID, len(req.Plants), len(slots),
		req.Start.Format(domain.DateLayout), req.End.Format(domain.DateLayout))

	index := &cellIndex{targets: gridindex.TargetsFromPlants(req.Plants), metric: uc.opts.Metric}
	profile := &WindProfile{RunID: runID, Hours: len(slots)}
	rows := make([]domain.WindRow, 0)

	for i, slot := range slots {
		tsID := int32(i + 1)

		snap, err := fetcher.Fetch(ctx, slot)
		if err != nil {
			if !errors.Is(err, domain.ErrTileUnavailable) {
				return nil, fmt.Errorf("hour %d (%s): %w", tsID, slot.Time.Format(time.RFC3339), err)
			}
			target := fetcher.URL(slot, false)
			var tileErr *noaa.TileError
			if errors.As(err, &tileErr) {
				target = tileErr.URL
			}
			profile.Missing = append(profile.Missing, target)
			rows = appendMissingWind(rows, req.Plants, slot.Time, tsID)
		} else {
			hourRows, err := uc.hourRows(snap, index, req.Plants, labels, tsID)
			if err != nil {
				log.Printf("[%s] hour %d unusable, recording as missing: %v", runID, tsID, err)
				profile.Missing = append(profile.Missing, fetcher.URL(slot, false))
				rows = appendMissingWind(rows, req.Plants, slot.Time, tsID)
			} else {
				rows = append(rows, hourRows...)
			}
		}

		if (i+1)%uc.opts.ProgressEvery == 0 {
			log.Printf("[%s] %d/%d hours processed, %d missing", runID, i+1, len(slots), len(profile.Missing))
		}
	}

	domain.SortWindRows(rows)
	profile.Rows = rows
	log.Printf("[%s] wind run done: %d rows, %d missing hours", runID, len(rows), len(profile.Missing))
	return profile, nil
}

// hourRows derives the rows of one snapshot. A snapshot that does not cover
// every indexed cell is rejected as a whole.
func (uc *WindProfileUseCase) hourRows(snap *domain.WindSnapshot, index *cellIndex, plants []domain.Plant, labels []string, tsID int32) ([]domain.WindRow, error) {
	ix, err := index.resolve(snap.Grid)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid index: %w", err)
	}

	out := make([]domain.WindRow, 0, len(plants))
	for i, p := range plants {
		cell, ok := ix.Cell(p.ID)
		if !ok {
			return nil, fmt.Errorf("plant %d is not indexed", p.ID)
		}
		if cell >= len(snap.U) || cell >= len(snap.V) {
			return nil, fmt.Errorf("snapshot has %d cells, plant %d maps to cell %d", min(len(snap.U), len(snap.V)), p.ID, cell)
		}

		u, v := snap.U[cell], snap.V[cell]
		speed := powercurve.WindSpeed(u, v)
		out = append(out, domain.WindRow{
			PlantID: p.ID,
			Time:    snap.Time,
			TSID:    tsID,
			U:       float32(u),
			V:       float32(v),
			Pout:    float32(p.Pmax * uc.curves.Power(speed, labels[i])),
		})
	}
	return out, nil
}

func appendMissingWind(rows []domain.WindRow, plants []domain.Plant, at time.Time, tsID int32) []domain.WindRow {
	for _, p := range plants {
		rows = append(rows, domain.WindRow{
			PlantID: p.ID,
			Time:    at,
			TSID:    tsID,
			U:       domain.Missing,
			V:       domain.Missing,
			Pout:    domain.Missing,
		})
	}
	return rows
}
