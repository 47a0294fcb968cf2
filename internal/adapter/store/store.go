// Package store defines the persistence ports of the profile pipelines.
package store

import "go.ngs.io/gridprofiles/internal/domain"

// PlantLoader is the interface for loading the plant table.
type PlantLoader interface {
	// LoadPlants returns the plants of the given categories (all when none given).
	LoadPlants(cats ...domain.Category) ([]domain.Plant, error)
}

// ProfileWriter persists assembled profiles to a file.
type ProfileWriter interface {
	// Ext is the file extension written, without the dot.
	Ext() string
	WriteWind(path string, rows []domain.WindRow) error
	WriteSolar(path string, rows []domain.SolarRow) error
}
