package domain

import (
	"fmt"
	"strings"
)

// Category classifies a plant by the weather dataset that drives its output.
type Category string

const (
	// CategoryWind is an onshore wind farm (RAP-130 path).
	CategoryWind Category = "wind"
	// CategoryWindOffshore is an offshore wind farm (RAP-130 path, "Offshore" curve).
	CategoryWindOffshore Category = "wind_offshore"
	// CategorySolar is a solar plant (WTK path).
	CategorySolar Category = "solar"
)

// ParseCategory maps a plant table "type" value to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryWind, CategoryWindOffshore, CategorySolar:
		return c, nil
	default:
		return "", fmt.Errorf("unknown plant type %q", s)
	}
}

// Plant is a generator location read from the plant table.
type Plant struct {
	ID       int32
	Lat      float64
	Lon      float64
	Pmax     float64 // Nameplate capacity in MW.
	Category Category
	State    string // Two-letter state or region label, e.g. "TX".
}

// Location returns the plant coordinates.
func (p Plant) Location() LatLon {
	return LatLon{Lat: p.Lat, Lon: p.Lon}
}

// PlantShare is one plant's capacity at a shared location.
type PlantShare struct {
	ID   int32
	Pmax float64
}

// LocationGroup is a unique coordinate pair and every plant sitting on it.
type LocationGroup struct {
	Location LatLon
	Members  []PlantShare
}

// GroupByLocation deduplicates plants by exact coordinates.
// Groups keep the order in which their location first appears.
func GroupByLocation(plants []Plant) []LocationGroup {
	index := make(map[LatLon]int, len(plants))
	groups := make([]LocationGroup, 0, len(plants))
	for _, p := range plants {
		loc := p.Location()
		i, ok := index[loc]
		if !ok {
			i = len(groups)
			index[loc] = i
			groups = append(groups, LocationGroup{Location: loc})
		}
		groups[i].Members = append(groups[i].Members, PlantShare{ID: p.ID, Pmax: p.Pmax})
	}
	return groups
}

// FilterPlants returns the plants whose category is one of cats.
func FilterPlants(plants []Plant, cats ...Category) []Plant {
	out := make([]Plant, 0, len(plants))
	for _, p := range plants {
		for _, c := range cats {
			if p.Category == c {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
