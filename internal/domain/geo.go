package domain

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64
	Lon float64
}

// GridCoordinates is the fixed spatial sampling of a weather dataset.
// Index k addresses Lat[k], Lon[k] and element k of every variable array
// decoded from the same snapshot.
type GridCoordinates struct {
	Lat []float64
	Lon []float64
}

// Len returns the number of grid cells.
func (g GridCoordinates) Len() int {
	return len(g.Lat)
}

// At returns the coordinates of cell k.
func (g GridCoordinates) At(k int) LatLon {
	return LatLon{Lat: g.Lat[k], Lon: g.Lon[k]}
}

// Validate checks that the coordinate arrays are usable.
func (g GridCoordinates) Validate() error {
	if len(g.Lat) != len(g.Lon) {
		return fmt.Errorf("latitude count (%d) must match longitude count (%d)", len(g.Lat), len(g.Lon))
	}
	if len(g.Lat) == 0 {
		return fmt.Errorf("grid has no cells")
	}
	return nil
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b LatLon) float64 {
	lat1 := Deg2Rad(a.Lat)
	lat2 := Deg2Rad(b.Lat)
	dLat := Deg2Rad(b.Lat - a.Lat)
	dLon := Deg2Rad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// UnitVector embeds a coordinate on the unit sphere.
func UnitVector(p LatLon) [3]float64 {
	lat := Deg2Rad(p.Lat)
	lon := Deg2Rad(p.Lon)
	return [3]float64{
		math.Cos(lat) * math.Cos(lon),
		math.Cos(lat) * math.Sin(lon),
		math.Sin(lat),
	}
}

// AngularDistance returns the angle in radians between two unit vectors.
func AngularDistance(u, v [3]float64) float64 {
	dot := u[0]*v[0] + u[1]*v[1] + u[2]*v[2]
	// Rounding can push |dot| slightly past 1.
	dot = math.Max(-1, math.Min(1, dot))
	return math.Acos(dot)
}

// GridCell addresses one cell of a 2-D dataset grid.
type GridCell struct {
	Row      int
	Col      int
	Location LatLon // Cell center.
}
