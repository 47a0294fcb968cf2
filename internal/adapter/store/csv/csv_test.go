package csv

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.ngs.io/gridprofiles/internal/domain"
)

const plantTable = `type,plant_id,Pmax,lat,lon,state
wind,101,150.5,35.2,-101.8,tx
solar,7,20,33.4,-112.1,AZ
coal,9,600,40.0,-80.0,PA
wind_offshore,55,400,41.1,-70.6,
`

// TestReadPlants tests header-driven parsing in any column order.
func TestReadPlants(t *testing.T) {
	plants, err := ReadPlants(strings.NewReader(plantTable))
	if err != nil {
		t.Fatalf("ReadPlants: %v", err)
	}
	if len(plants) != 3 {
		t.Fatalf("expected 3 plants (coal skipped), got %d", len(plants))
	}

	want := domain.Plant{ID: 101, Lat: 35.2, Lon: -101.8, Pmax: 150.5, Category: domain.CategoryWind, State: "TX"}
	if plants[0] != want {
		t.Errorf("plant 0 = %+v, want %+v", plants[0], want)
	}
	if plants[2].Category != domain.CategoryWindOffshore || plants[2].State != "" {
		t.Errorf("unexpected offshore plant: %+v", plants[2])
	}
}

func TestReadPlants_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "plant_id,lat,lon,type\n1,2,3,wind\n"},
		{"bad id", "plant_id,lat,lon,Pmax,type\nx,2,3,4,wind\n"},
		{"bad lat", "plant_id,lat,lon,Pmax,type\n1,north,3,4,wind\n"},
		{"ragged row", "plant_id,lat,lon,Pmax,type\n1,2,3\n"},
		{"no usable plants", "plant_id,lat,lon,Pmax,type\n1,2,3,4,hydro\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPlants(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestPlantStore_LoadPlants tests category filtering on a file-backed table.
func TestPlantStore_LoadPlants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.csv")
	if err := os.WriteFile(path, []byte(plantTable), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewPlantStore(path)

	wind, err := s.LoadPlants(domain.CategoryWind, domain.CategoryWindOffshore)
	if err != nil {
		t.Fatalf("LoadPlants: %v", err)
	}
	if len(wind) != 2 {
		t.Errorf("expected 2 wind plants, got %d", len(wind))
	}

	all, err := s.LoadPlants()
	if err != nil {
		t.Fatalf("LoadPlants: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 plants, got %d", len(all))
	}

	if _, err := NewPlantStore(filepath.Join(t.TempDir(), "absent.csv")).LoadPlants(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncodeWind(t *testing.T) {
	ts := time.Date(2016, 1, 1, 1, 0, 0, 0, time.UTC)
	rows := []domain.WindRow{
		{PlantID: 1, Time: ts, TSID: 2, U: 3, V: 4, Pout: 12.5},
		{PlantID: 2, Time: ts, TSID: 2, U: domain.Missing, V: domain.Missing, Pout: domain.Missing},
	}

	var buf bytes.Buffer
	if err := EncodeWind(&buf, rows); err != nil {
		t.Fatalf("EncodeWind: %v", err)
	}
	want := "plant_id,ts,ts_id,U,V,Pout\n" +
		"1,2016-01-01 01:00:00,2,3,4,12.5\n" +
		"2,2016-01-01 01:00:00,2,NaN,NaN,NaN\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestEncodeSolar(t *testing.T) {
	rows := []domain.SolarRow{{Pout: 0.25, PlantID: 7, Time: time.Date(2010, 6, 1, 12, 0, 0, 0, time.UTC), TSID: 13}}

	var buf bytes.Buffer
	if err := EncodeSolar(&buf, rows); err != nil {
		t.Fatalf("EncodeSolar: %v", err)
	}
	want := "Pout,plant_id,ts,ts_id\n0.25,7,2010-06-01 12:00:00,13\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

// TestWriter_Files tests the file-backed writers and the missing list.
func TestWriter_Files(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()
	if w.Ext() != "csv" {
		t.Errorf("Ext() = %s", w.Ext())
	}

	windPath := filepath.Join(dir, "wind.csv")
	if err := w.WriteWind(windPath, []domain.WindRow{{PlantID: 1, TSID: 1}}); err != nil {
		t.Fatalf("WriteWind: %v", err)
	}
	data, err := os.ReadFile(windPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected header and one row, got %d lines", lines)
	}

	missingPath := filepath.Join(dir, "missing.txt")
	urls := []string{"http://a/1", "http://a/2"}
	if err := WriteMissing(missingPath, urls); err != nil {
		t.Fatalf("WriteMissing: %v", err)
	}
	data, _ = os.ReadFile(missingPath)
	if string(data) != "http://a/1\nhttp://a/2\n" {
		t.Errorf("unexpected missing list %q", data)
	}

	if err := w.WriteSolar(filepath.Join(dir, "no", "such", "dir.csv"), nil); err == nil {
		t.Error("expected error for unwritable path")
	}
}
