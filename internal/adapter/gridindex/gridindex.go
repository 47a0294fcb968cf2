// Package gridindex maps target locations to their nearest weather grid cell.
package gridindex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.ngs.io/gridprofiles/internal/domain"
)

// Metric selects the great-circle distance used to rank grid cells.
type Metric int

const (
	// Haversine ranks cells by haversine distance on raw lat/lon.
	Haversine Metric = iota
	// Angular ranks cells by the angle between unit-sphere embeddings.
	Angular
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case Haversine:
		return "haversine"
	case Angular:
		return "angular"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ErrNoCell is returned when a grid has no usable cell.
var ErrNoCell = errors.New("no usable grid cell")

// Target is a location to be matched against the grid.
type Target struct {
	ID       int32
	Location domain.LatLon
}

// TargetsFromPlants builds targets from plant records.
func TargetsFromPlants(plants []domain.Plant) []Target {
	targets := make([]Target, len(plants))
	for i, p := range plants {
		targets[i] = Target{ID: p.ID, Location: p.Location()}
	}
	return targets
}

// Index maps target IDs to flat grid cell indices.
// It is read-only once built.
type Index struct {
	metric Metric
	cells  map[int32]int
}

// Build assigns every target its nearest grid cell.
// Complexity is O(targets x cells); grids are a few thousand cells.
func Build(targets []Target, grid domain.GridCoordinates, metric Metric) (*Index, error) {
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	ix := &Index{
		metric: metric,
		cells:  make(map[int32]int, len(targets)),
	}

	// Precompute cell embeddings once for the angular metric.
	var vectors [][3]float64
	if metric == Angular {
		vectors = unitVectors(grid)
	}

	for _, t := range targets {
		var (
			cell int
			err  error
		)
		if metric == Angular {
			cell, err = nearestAngular(domain.UnitVector(t.Location), vectors)
		} else {
			cell, err = Nearest(t.Location, grid, metric)
		}
		if err != nil {
			return nil, fmt.Errorf("target %d at (%.4f, %.4f): %w", t.ID, t.Location.Lat, t.Location.Lon, err)
		}
		ix.cells[t.ID] = cell
	}

	return ix, nil
}

// Nearest returns the index of the grid cell closest to p.
// Ties keep the first cell in iteration order; NaN cells are skipped.
func Nearest(p domain.LatLon, grid domain.GridCoordinates, metric Metric) (int, error) {
	if err := grid.Validate(); err != nil {
		return -1, fmt.Errorf("invalid grid: %w", err)
	}

	switch metric {
	case Haversine:
		best, bestDist := -1, math.Inf(1)
		for k := 0; k < grid.Len(); k++ {
			d := domain.HaversineKm(p, grid.At(k))
			if d < bestDist {
				best, bestDist = k, d
			}
		}
		if best < 0 {
			return -1, ErrNoCell
		}
		return best, nil
	case Angular:
		return nearestAngular(domain.UnitVector(p), unitVectors(grid))
	default:
		return -1, fmt.Errorf("unknown metric %v", metric)
	}
}

func nearestAngular(target [3]float64, vectors [][3]float64) (int, error) {
	best, bestDist := -1, math.Inf(1)
	for k, v := range vectors {
		d := domain.AngularDistance(target, v)
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	if best < 0 {
		return -1, ErrNoCell
	}
	return best, nil
}

func unitVectors(grid domain.GridCoordinates) [][3]float64 {
	vectors := make([][3]float64, grid.Len())
	for k := range vectors {
		vectors[k] = domain.UnitVector(grid.At(k))
	}
	return vectors
}

// Cell returns the grid cell assigned to a target.
func (ix *Index) Cell(id int32) (int, bool) {
	cell, ok := ix.cells[id]
	return cell, ok
}

// Metric returns the metric the index was built with.
func (ix *Index) Metric() Metric {
	return ix.metric
}

// Len returns the number of indexed targets.
func (ix *Index) Len() int {
	return len(ix.cells)
}

// IDs returns the indexed target IDs in ascending order.
func (ix *Index) IDs() []int32 {
	ids := make([]int32, 0, len(ix.cells))
	for id := range ix.cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
