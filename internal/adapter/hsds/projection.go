package hsds

import (
	"math"

	"go.ngs.io/gridprofiles/internal/domain"
)

// LambertConformal is a spherical Lambert conformal conic projection with two
// standard parallels. Angles are in degrees, distances in meters.
type LambertConformal struct {
	Radius float64
	Lat1   float64
	Lat2   float64
	Lat0   float64
	Lon0   float64

	n, f, rho0 float64
}

// WTKProjection is the grid projection of the WIND Toolkit archive.
var WTKProjection = NewLambertConformal(6370997, 30, 60, 38.47240422490422, -96)

// NewLambertConformal precomputes the cone constants.
func NewLambertConformal(radius, lat1, lat2, lat0, lon0 float64) LambertConformal {
	p := LambertConformal{Radius: radius, Lat1: lat1, Lat2: lat2, Lat0: lat0, Lon0: lon0}

	phi1, phi2 := domain.Deg2Rad(lat1), domain.Deg2Rad(lat2)
	if lat1 == lat2 {
		p.n = math.Sin(phi1)
	} else {
		p.n = math.Log(math.Cos(phi1)/math.Cos(phi2)) /
			math.Log(math.Tan(math.Pi/4+phi2/2)/math.Tan(math.Pi/4+phi1/2))
	}
	p.f = math.Cos(phi1) * math.Pow(math.Tan(math.Pi/4+phi1/2), p.n) / p.n
	p.rho0 = p.rho(domain.Deg2Rad(lat0))
	return p
}

func (p LambertConformal) rho(phi float64) float64 {
	return p.Radius * p.f / math.Pow(math.Tan(math.Pi/4+phi/2), p.n)
}

// Forward projects a geographic coordinate to easting and northing.
func (p LambertConformal) Forward(ll domain.LatLon) (x, y float64) {
	rho := p.rho(domain.Deg2Rad(ll.Lat))
	theta := p.n * domain.Deg2Rad(normalizeLon(ll.Lon-p.Lon0))
	return rho * math.Sin(theta), p.rho0 - rho*math.Cos(theta)
}

func normalizeLon(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// GridPosition returns the fractional (row, col) of ll on a regular projected
// grid whose cell (0, 0) is centered on origin.
func (p LambertConformal) GridPosition(origin, ll domain.LatLon, spacing float64) (row, col float64) {
	x0, y0 := p.Forward(origin)
	x, y := p.Forward(ll)
	return (y - y0) / spacing, (x - x0) / spacing
}

// Inverse maps easting and northing back to a geographic coordinate.
func (p LambertConformal) Inverse(x, y float64) domain.LatLon {
	dy := p.rho0 - y
	rho := math.Copysign(math.Hypot(x, dy), p.n)
	theta := math.Atan2(x, dy)
	if p.n < 0 {
		theta = math.Atan2(-x, -dy)
	}
	phi := 2*math.Atan(math.Pow(p.Radius*p.f/rho, 1/p.n)) - math.Pi/2
	return domain.LatLon{
		Lat: domain.Rad2Deg(phi),
		Lon: normalizeLon(p.Lon0 + domain.Rad2Deg(theta/p.n)),
	}
}
