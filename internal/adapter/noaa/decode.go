package noaa

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/gridprofiles/internal/domain"
)

// DefaultHeightIndex selects 80 m on the RAP height_above_ground axis (10 m, 80 m).
const DefaultHeightIndex = 1

// Field is a decoded RAP wind payload.
type Field struct {
	Grid domain.GridCoordinates
	U    []float64
	V    []float64
}

// DecodeRAP reads grid coordinates and the U/V wind components from an NCSS
// NetCDF payload on disk. 4-D wind variables are read at time 0 and the given
// height index; 3-D at time 0; 2-D as is. Fill values become NaN.
func DecodeRAP(path string, heightIndex int) (*Field, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF payload: %w", err)
	}
	defer func() { _ = nc.Close() }()

	lat, latShape, err := readCoordinate(nc, []string{"lat", "latitude"})
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lon, lonShape, err := readCoordinate(nc, []string{"lon", "longitude"})
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	u, err := readWindComponent(nc, VarU, heightIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", VarU, err)
	}
	v, err := readWindComponent(nc, VarV, heightIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", VarV, err)
	}
	if len(u) != len(v) {
		return nil, fmt.Errorf("wind components differ in size: %d vs %d", len(u), len(v))
	}

	grid, err := buildGrid(lat, latShape, lon, lonShape, len(u))
	if err != nil {
		return nil, err
	}

	return &Field{Grid: grid, U: u, V: v}, nil
}

// buildGrid flattens coordinates to match the data layout. Regular lat/lon
// axes (1-D each) are expanded to a row-major mesh.
func buildGrid(lat []float64, latShape []uint64, lon []float64, lonShape []uint64, n int) (domain.GridCoordinates, error) {
	if len(lat) == n && len(lon) == n {
		return domain.GridCoordinates{Lat: lat, Lon: lon}, nil
	}
	if len(latShape) == 1 && len(lonShape) == 1 && len(lat)*len(lon) == n {
		grid := domain.GridCoordinates{Lat: make([]float64, 0, n), Lon: make([]float64, 0, n)}
		for _, y := range lat {
			for _, x := range lon {
				grid.Lat = append(grid.Lat, y)
				grid.Lon = append(grid.Lon, x)
			}
		}
		return grid, nil
	}
	return domain.GridCoordinates{}, fmt.Errorf("coordinate sizes (%d lat, %d lon) do not match %d wind values",
		len(lat), len(lon), n)
}

func readCoordinate(nc netcdf.Dataset, names []string) ([]float64, []uint64, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		shape, err := varShape(v)
		if err != nil {
			return nil, nil, err
		}
		start := make([]uint64, len(shape))
		values, err := readFloat64Slice(v, start, shape)
		if err != nil {
			return nil, nil, err
		}
		return values, shape, nil
	}
	return nil, nil, fmt.Errorf("variable not found (tried: %v)", names)
}

func readWindComponent(nc netcdf.Dataset, name string, heightIndex int) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable not found: %w", err)
	}
	shape, err := varShape(v)
	if err != nil {
		return nil, err
	}

	start := make([]uint64, len(shape))
	count := append([]uint64(nil), shape...)
	switch len(shape) {
	case 4:
		// [time, height, y, x].
		if heightIndex < 0 || uint64(heightIndex) >= shape[1] {
			return nil, fmt.Errorf("height index %d outside axis of length %d", heightIndex, shape[1])
		}
		start[1] = uint64(heightIndex)
		count[0], count[1] = 1, 1
	case 3:
		// [time, y, x].
		count[0] = 1
	case 2:
	default:
		return nil, fmt.Errorf("expected 2D to 4D data, got %dD", len(shape))
	}

	values, err := readFloat64Slice(v, start, count)
	if err != nil {
		return nil, err
	}

	if fv, ok := getFillValue(v); ok {
		for i := range values {
			if values[i] == fv {
				values[i] = math.NaN()
			}
		}
	}
	applyPacking(v, values)
	return values, nil
}

func varShape(v netcdf.Var) ([]uint64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	shape := make([]uint64, len(dims))
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		shape[i] = n
	}
	return shape, nil
}

// readFloat64Slice reads a hyperslab of any numeric variable as float64.
func readFloat64Slice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	total := uint64(1)
	for _, c := range count {
		total *= c
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	out := make([]float64, total)
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, err
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, err
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return out, nil
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if val, ok := readScalarAttr(v, name); ok {
			return val, true
		}
	}
	return 0, false
}

// applyPacking applies scale_factor and add_offset when present.
func applyPacking(v netcdf.Var, values []float64) {
	scale, hasScale := readScalarAttr(v, "scale_factor")
	offset, hasOffset := readScalarAttr(v, "add_offset")
	if !hasScale && !hasOffset {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i := range values {
		values[i] = values[i]*scale + offset
	}
}

func readScalarAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	return 0, false
}
