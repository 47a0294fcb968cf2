package hsds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.ngs.io/gridprofiles/internal/adapter/gridindex"
	"go.ngs.io/gridprofiles/internal/domain"
)

// WIND Toolkit layout.
const (
	DatasetCoordinates = "coordinates"
	DatasetGHI         = "GHI"

	GridRows    = 1602
	GridCols    = 2976
	GridSpacing = 2000.0 // meters

	// DefaultMargin is the half-width, in cells, of the coordinate window
	// searched around the projected position.
	DefaultMargin = 2
)

var nan = math.NaN()

var (
	// Epoch is the valid time of hour index 0.
	Epoch = time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)
	// LastHour is the last hour in the archive.
	LastHour = time.Date(2013, 12, 31, 23, 0, 0, 0, time.UTC)
)

var (
	// ErrOutOfRange is returned for hours outside the archive span.
	ErrOutOfRange = errors.New("outside the WIND Toolkit archive span (2007-01-01 to 2013-12-31)")
	// ErrOutsideGrid is returned for locations the grid does not cover.
	ErrOutsideGrid = errors.New("location outside the WIND Toolkit grid")
)

// HourIndex returns the time index of an hour in the archive.
func HourIndex(t time.Time) (int, error) {
	t = t.UTC()
	if t.Before(Epoch) || t.After(LastHour) {
		return -1, fmt.Errorf("%s: %w", t.Format(time.RFC3339), ErrOutOfRange)
	}
	return int(t.Sub(Epoch) / time.Hour), nil
}

// WTK reads irradiance from the WIND Toolkit through an HSDS client.
type WTK struct {
	client *Client
	proj   LambertConformal
	margin int

	mu     sync.RWMutex
	origin *domain.LatLon
}

// NewWTK wraps a client. A non-positive margin uses DefaultMargin.
func NewWTK(client *Client, margin int) *WTK {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &WTK{client: client, proj: WTKProjection, margin: margin}
}

// Origin returns the center of grid cell (0, 0).
func (w *WTK) Origin(ctx context.Context) (domain.LatLon, error) {
	w.mu.RLock()
	cached := w.origin
	w.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	v, err := w.client.Values(ctx, DatasetCoordinates, Range{0, 1}, Range{0, 1})
	if err != nil {
		return domain.LatLon{}, err
	}
	if len(v) != 2 {
		return domain.LatLon{}, fmt.Errorf("coordinates origin: expected (lat, lon), got %d values", len(v))
	}
	origin := domain.LatLon{Lat: v[0], Lon: v[1]}
	w.mu.Lock()
	w.origin = &origin
	w.mu.Unlock()
	return origin, nil
}

// Locate returns the grid cell nearest to p. The projected position narrows
// the search to a small window of cell centers, which are compared by
// haversine distance.
func (w *WTK) Locate(ctx context.Context, p domain.LatLon) (domain.GridCell, error) {
	origin, err := w.Origin(ctx)
	if err != nil {
		return domain.GridCell{}, err
	}

	fr, fc := w.proj.GridPosition(origin, p, GridSpacing)
	row, col := int(math.Round(fr)), int(math.Round(fc))
	if row < -w.margin || row >= GridRows+w.margin || col < -w.margin || col >= GridCols+w.margin {
		return domain.GridCell{}, fmt.Errorf("(%.4f, %.4f): %w", p.Lat, p.Lon, ErrOutsideGrid)
	}

	rows := clampRange(row-w.margin, row+w.margin+1, GridRows)
	cols := clampRange(col-w.margin, col+w.margin+1, GridCols)

	v, err := w.client.Values(ctx, DatasetCoordinates, rows, cols)
	if err != nil {
		return domain.GridCell{}, err
	}
	n := rows.Len() * cols.Len()
	if len(v) != 2*n {
		return domain.GridCell{}, fmt.Errorf("coordinate window: expected %d values, got %d", 2*n, len(v))
	}

	window := domain.GridCoordinates{Lat: make([]float64, n), Lon: make([]float64, n)}
	for k := 0; k < n; k++ {
		window.Lat[k], window.Lon[k] = v[2*k], v[2*k+1]
	}

	k, err := gridindex.Nearest(p, window, gridindex.Haversine)
	if err != nil {
		return domain.GridCell{}, fmt.Errorf("(%.4f, %.4f): %w", p.Lat, p.Lon, err)
	}
	return domain.GridCell{
		Row:      rows.Start + k/cols.Len(),
		Col:      cols.Start + k%cols.Len(),
		Location: window.At(k),
	}, nil
}

func clampRange(start, stop, n int) Range {
	if start < 0 {
		start = 0
	}
	if stop > n {
		stop = n
	}
	return Range{Start: start, Stop: stop}
}

// GHI returns the hourly irradiance at a cell for [first, last], both
// inclusive hour timestamps.
func (w *WTK) GHI(ctx context.Context, cell domain.GridCell, first, last time.Time) ([]float64, error) {
	i0, err := HourIndex(first)
	if err != nil {
		return nil, err
	}
	i1, err := HourIndex(last)
	if err != nil {
		return nil, err
	}
	if i1 < i0 {
		return nil, fmt.Errorf("last hour %s is before first hour %s", last, first)
	}

	v, err := w.client.Values(ctx, DatasetGHI,
		Range{i0, i1 + 1}, Range{cell.Row, cell.Row + 1}, Range{cell.Col, cell.Col + 1})
	if err != nil {
		return nil, err
	}
	if len(v) != i1-i0+1 {
		return nil, fmt.Errorf("GHI: expected %d hours, got %d", i1-i0+1, len(v))
	}
	return v, nil
}
