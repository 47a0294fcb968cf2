package domain

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrTileUnavailable marks an hour for which no snapshot could be retrieved.
// It is recoverable: the hour is logged as missing and the run continues.
var ErrTileUnavailable = errors.New("tile unavailable")

// Missing is the sentinel written to derived columns of missing hours.
var Missing = float32(math.NaN())

// WindSnapshot is one hourly RAP field over the dataset grid.
type WindSnapshot struct {
	Time time.Time
	Grid GridCoordinates
	U    []float64 // Eastward wind at 80 m, m/s.
	V    []float64 // Northward wind at 80 m, m/s.
}

// WindRow is one (plant, hour) sample of the wind profile.
type WindRow struct {
	PlantID int32
	Time    time.Time
	TSID    int32
	U       float32
	V       float32
	Pout    float32 // MWh.
}

// SolarRow is one (plant, hour) sample of the solar profile.
type SolarRow struct {
	Pout    float32 // MWh.
	PlantID int32
	Time    time.Time
	TSID    int32
}

// SortWindRows orders rows by (TSID, PlantID).
func SortWindRows(rows []WindRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TSID != rows[j].TSID {
			return rows[i].TSID < rows[j].TSID
		}
		return rows[i].PlantID < rows[j].PlantID
	})
}

// SortSolarRows orders rows by (TSID, PlantID).
func SortSolarRows(rows []SolarRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TSID != rows[j].TSID {
			return rows[i].TSID < rows[j].TSID
		}
		return rows[i].PlantID < rows[j].PlantID
	})
}

// DateLayout is the date-only format used for run ranges.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Hours returns every hour from start 00:00 through end 23:00 (UTC).
// Dates are truncated to midnight; an end before start yields nil.
func Hours(start, end time.Time) []time.Time {
	first := truncateDay(start)
	last := truncateDay(end).Add(23 * time.Hour)
	if last.Before(first) {
		return nil
	}
	n := int(last.Sub(first)/time.Hour) + 1
	hours := make([]time.Time, 0, n)
	for t := first; !t.After(last); t = t.Add(time.Hour) {
		hours = append(hours, t)
	}
	return hours
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
