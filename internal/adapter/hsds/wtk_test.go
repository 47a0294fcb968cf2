package hsds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/gridprofiles/internal/domain"
)

const testAPIKey = "test-key"

// wtkOrigin approximates the real WIND Toolkit coordinates[0][0].
var wtkOrigin = domain.LatLon{Lat: 19.624062, Lon: -123.30661}

// fakeHSDS serves a WIND Toolkit-like domain whose cell centers lie exactly on
// the projected 2 km grid. GHI at hour index t is t%24 * 10.
type fakeHSDS struct {
	roots int32

	mu      sync.Mutex
	selects []string
}

func (f *fakeHSDS) record(sel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects = append(f.selects, sel)
}

func (f *fakeHSDS) selections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.selects...)
}

func (f *fakeHSDS) cellCenter(row, col int) domain.LatLon {
	x0, y0 := WTKProjection.Forward(wtkOrigin)
	return WTKProjection.Inverse(x0+float64(col)*GridSpacing, y0+float64(row)*GridSpacing)
}

func (f *fakeHSDS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("api_key") != testAPIKey {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusForbidden)
		return
	}
	if q.Get("domain") != DefaultDomain {
		http.Error(w, "unknown domain", http.StatusNotFound)
		return
	}

	var body any
	switch r.URL.Path {
	case "/":
		atomic.AddInt32(&f.roots, 1)
		body = map[string]any{"root": "g-root"}
	case "/groups/g-root/links/coordinates":
		body = map[string]any{"link": map[string]any{"id": "d-coords", "title": "coordinates"}}
	case "/groups/g-root/links/GHI":
		body = map[string]any{"link": map[string]any{"id": "d-ghi", "title": "GHI"}}
	case "/datasets/d-coords/value":
		f.record(q.Get("select"))
		var r0, r1, c0, c1 int
		if _, err := fmt.Sscanf(q.Get("select"), "[%d:%d,%d:%d]", &r0, &r1, &c0, &c1); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows := make([][][2]float64, 0, r1-r0)
		for row := r0; row < r1; row++ {
			cols := make([][2]float64, 0, c1-c0)
			for col := c0; col < c1; col++ {
				c := f.cellCenter(row, col)
				cols = append(cols, [2]float64{c.Lat, c.Lon})
			}
			rows = append(rows, cols)
		}
		body = map[string]any{"value": rows}
	case "/datasets/d-ghi/value":
		f.record(q.Get("select"))
		var t0, t1, row, row1, col, col1 int
		if _, err := fmt.Sscanf(q.Get("select"), "[%d:%d,%d:%d,%d:%d]", &t0, &t1, &row, &row1, &col, &col1); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		values := make([][][]float64, 0, t1-t0)
		for t := t0; t < t1; t++ {
			values = append(values, [][]float64{{float64(t%24) * 10}})
		}
		body = map[string]any{"value": values}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestWTK(t *testing.T) (*WTK, *fakeHSDS) {
	t.Helper()
	fake := &fakeHSDS{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "", testAPIKey)
	require.NoError(t, err)
	return NewWTK(client, 0), fake
}

// TestLambertConformal_RoundTrip tests that Inverse undoes Forward.
func TestLambertConformal_RoundTrip(t *testing.T) {
	x, y := WTKProjection.Forward(domain.LatLon{Lat: WTKProjection.Lat0, Lon: WTKProjection.Lon0})
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	for _, p := range []domain.LatLon{wtkOrigin, {Lat: 35.2, Lon: -101.8}, {Lat: 47.6, Lon: -68.9}} {
		x, y := WTKProjection.Forward(p)
		back := WTKProjection.Inverse(x, y)
		assert.InDelta(t, p.Lat, back.Lat, 1e-9)
		assert.InDelta(t, p.Lon, back.Lon, 1e-9)
	}
}

func TestHourIndex(t *testing.T) {
	tests := []struct {
		name    string
		at      time.Time
		want    int
		wantErr bool
	}{
		{"epoch", Epoch, 0, false},
		{"one day in", time.Date(2007, 1, 2, 5, 0, 0, 0, time.UTC), 29, false},
		{"last hour", LastHour, 61367, false},
		{"before archive", time.Date(2006, 12, 31, 23, 0, 0, 0, time.UTC), 0, true},
		{"after archive", time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HourIndex(tt.at)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestWTK_Locate tests nearest-cell resolution through the coordinate window.
func TestWTK_Locate(t *testing.T) {
	w, fake := newTestWTK(t)
	ctx := context.Background()

	target := fake.cellCenter(700, 1500)
	// Offset by roughly 400 m so the cell is nearest but not exact.
	p := domain.LatLon{Lat: target.Lat + 0.003, Lon: target.Lon - 0.002}

	cell, err := w.Locate(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 700, cell.Row)
	assert.Equal(t, 1500, cell.Col)
	assert.InDelta(t, target.Lat, cell.Location.Lat, 1e-9)
	assert.Contains(t, fake.selections(), "[698:703,1498:1503]")

	// The root group and the origin are resolved once per WTK.
	_, err = w.Locate(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.roots))
}

// TestWTK_Locate_GridEdge tests that the window is clamped at the grid border.
func TestWTK_Locate_GridEdge(t *testing.T) {
	w, fake := newTestWTK(t)

	cell, err := w.Locate(context.Background(), wtkOrigin)
	require.NoError(t, err)
	assert.Equal(t, 0, cell.Row)
	assert.Equal(t, 0, cell.Col)
	assert.Contains(t, fake.selections(), "[0:3,0:3]")

	_, err = w.Locate(context.Background(), domain.LatLon{Lat: -33.9, Lon: 18.4})
	assert.ErrorIs(t, err, ErrOutsideGrid)
}

// TestWTK_GHI tests the hour-index selection of the irradiance series.
func TestWTK_GHI(t *testing.T) {
	w, fake := newTestWTK(t)
	first := time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2010, 6, 2, 23, 0, 0, 0, time.UTC)

	ghi, err := w.GHI(context.Background(), domain.GridCell{Row: 10, Col: 20}, first, last)
	require.NoError(t, err)
	require.Len(t, ghi, 48)
	assert.Equal(t, 0.0, ghi[0])
	assert.Equal(t, 120.0, ghi[12])
	assert.Equal(t, 230.0, ghi[47])

	i0, _ := HourIndex(first)
	assert.Contains(t, fake.selections(), fmt.Sprintf("[%d:%d,10:11,20:21]", i0, i0+48))

	_, err = w.GHI(context.Background(), domain.GridCell{}, first, time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// TestClient_StatusError tests that rejected requests surface the status without the key.
func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(&fakeHSDS{})
	defer server.Close()

	client, err := NewClient(server.URL, "", "wrong-key")
	require.NoError(t, err)

	_, err = client.Root(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected *StatusError, got %v", err)
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
	assert.False(t, strings.Contains(err.Error(), "wrong-key"))
}

func TestFlatten(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`[[[1.5, 2]], [[null, 4]]]`), &raw))

	out, err := flatten(raw, nil)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, 1.5, out[0])
	assert.True(t, math.IsNaN(out[2]))

	_, err = flatten("text", nil)
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, "[0:24,5:6,7:8]", Select(Range{0, 24}, Range{5, 6}, Range{7, 8}))
	assert.Equal(t, 24, Range{0, 24}.Len())
}

// TestWTK_ConcurrentLookups tests that one WTK serves parallel callers while
// its root, dataset and origin caches are still empty.
func TestWTK_ConcurrentLookups(t *testing.T) {
	wtk, fake := newTestWTK(t)
	ctx := context.Background()
	p := fake.cellCenter(700, 1500)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, 2*workers)
	cells := make(chan domain.GridCell, workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := wtk.client.Values(ctx, DatasetGHI, Range{0, 1}, Range{0, 1}, Range{0, 1}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			cell, err := wtk.Locate(ctx, p)
			if err != nil {
				errs <- err
				return
			}
			cells <- cell
		}()
	}
	wg.Wait()
	close(errs)
	close(cells)

	for err := range errs {
		assert.NoError(t, err)
	}
	for cell := range cells {
		assert.Equal(t, 700, cell.Row)
		assert.Equal(t, 1500, cell.Col)
	}
}
