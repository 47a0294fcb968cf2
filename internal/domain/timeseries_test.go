package domain

import (
	"testing"
	"time"
)

// TestHours_LengthAndOrdering checks the inclusive hourly range contract.
func TestHours_LengthAndOrdering(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2016-01-01", "2016-01-01", 24},
		{"2016-01-01", "2016-01-02", 48},
		{"2016-02-28", "2016-03-01", 72}, // Leap day.
		{"2016-12-31", "2017-01-01", 48},
	}

	for _, tt := range tests {
		start, _ := ParseDate(tt.start)
		end, _ := ParseDate(tt.end)
		hours := Hours(start, end)

		// hours_between(first, last) + 1.
		last := end.Add(23 * time.Hour)
		expected := int(last.Sub(start)/time.Hour) + 1
		if len(hours) != tt.want || len(hours) != expected {
			t.Errorf("%s..%s: got %d hours, want %d", tt.start, tt.end, len(hours), tt.want)
			continue
		}
		if !hours[0].Equal(start) || !hours[len(hours)-1].Equal(last) {
			t.Errorf("%s..%s: endpoints %v, %v", tt.start, tt.end, hours[0], hours[len(hours)-1])
		}
		for i := 1; i < len(hours); i++ {
			if hours[i].Sub(hours[i-1]) != time.Hour {
				t.Fatalf("%s..%s: gap or duplicate at %d: %v -> %v", tt.start, tt.end, i, hours[i-1], hours[i])
			}
		}
	}
}

func TestHours_EndBeforeStart(t *testing.T) {
	start, _ := ParseDate("2016-01-02")
	end, _ := ParseDate("2016-01-01")
	if got := Hours(start, end); got != nil {
		t.Errorf("expected nil, got %d hours", len(got))
	}
}

func TestSortWindRows(t *testing.T) {
	rows := []WindRow{
		{PlantID: 5, TSID: 2},
		{PlantID: 9, TSID: 1},
		{PlantID: 1, TSID: 2},
		{PlantID: 2, TSID: 1},
	}
	SortWindRows(rows)

	want := [][2]int32{{1, 2}, {1, 9}, {2, 1}, {2, 5}}
	for i, w := range want {
		if rows[i].TSID != w[0] || rows[i].PlantID != w[1] {
			t.Errorf("row %d = (%d, %d), want (%d, %d)", i, rows[i].TSID, rows[i].PlantID, w[0], w[1])
		}
	}
}

func TestSortSolarRows(t *testing.T) {
	rows := []SolarRow{
		{PlantID: 4, TSID: 3},
		{PlantID: 2, TSID: 3},
		{PlantID: 8, TSID: 1},
	}
	SortSolarRows(rows)

	if rows[0].PlantID != 8 || rows[1].PlantID != 2 || rows[2].PlantID != 4 {
		t.Errorf("unexpected order: %+v", rows)
	}
}
