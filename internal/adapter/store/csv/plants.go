// Package csv provides CSV-based plant table loading and profile output.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"go.ngs.io/gridprofiles/internal/domain"
)

// Plant table columns. state is optional.
var requiredColumns = []string{"plant_id", "lat", "lon", "Pmax", "type"}

// PlantStore provides access to the plant table.
type PlantStore struct {
	path string
}

// NewPlantStore creates a new CSV-based plant store.
func NewPlantStore(path string) *PlantStore {
	return &PlantStore{
		path: path,
	}
}

// Path returns the plant table location.
func (s *PlantStore) Path() string {
	return s.path
}

// LoadPlants reads the plant table and keeps the plants of the given
// categories. With no categories every wind and solar plant is returned.
func (s *PlantStore) LoadPlants(cats ...domain.Category) ([]domain.Plant, error) {
	//nolint:gosec // G304: Path comes from configuration.
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plant table %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	plants, err := ReadPlants(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if len(cats) > 0 {
		plants = domain.FilterPlants(plants, cats...)
	}
	return plants, nil
}

// ReadPlants parses a plant table with a header row. Columns may appear in
// any order; rows whose type is not a wind or solar category are skipped.
func ReadPlants(r io.Reader) ([]domain.Plant, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// Read header.
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("invalid CSV header: missing column %s, got %v", name, header)
		}
	}
	stateCol, hasState := col["state"]

	plants := make([]domain.Plant, 0)
	skipped := 0
	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		field := func(name string) string {
			return strings.TrimSpace(record[col[name]])
		}

		category, err := domain.ParseCategory(field("type"))
		if err != nil {
			skipped++
			continue
		}

		id, err := strconv.ParseInt(field("plant_id"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid plant_id: %w", line, err)
		}
		lat, err := strconv.ParseFloat(field("lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid lat for plant %d: %w", line, id, err)
		}
		lon, err := strconv.ParseFloat(field("lon"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid lon for plant %d: %w", line, id, err)
		}
		pmax, err := strconv.ParseFloat(field("Pmax"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid Pmax for plant %d: %w", line, id, err)
		}

		p := domain.Plant{
			ID:       int32(id),
			Lat:      lat,
			Lon:      lon,
			Pmax:     pmax,
			Category: category,
		}
		if hasState {
			p.State = strings.ToUpper(strings.TrimSpace(record[stateCol]))
		}
		plants = append(plants, p)
	}

	if skipped > 0 {
		log.Printf("Skipped %d plants with types outside wind, wind_offshore and solar", skipped)
	}
	if len(plants) == 0 {
		return nil, fmt.Errorf("no wind or solar plants found")
	}

	return plants, nil
}
