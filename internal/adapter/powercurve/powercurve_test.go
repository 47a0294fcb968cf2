package powercurve

import (
	"math"
	"strings"
	"testing"

	"go.ngs.io/gridprofiles/internal/domain"
)

const testTurbineCSV = `wspd,IEC class 2,Offshore
0,0,0
4,0.1,0.05
12,1,0.8
25,1,1
`

const testStateCSV = `wspd,TX,IA
0,0,0
4,0.2,0.15
12,1,0.9
25,1,1
`

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	turbine, err := LoadTable(strings.NewReader(testTurbineCSV))
	if err != nil {
		t.Fatalf("LoadTable turbine: %v", err)
	}
	state, err := LoadTable(strings.NewReader(testStateCSV))
	if err != nil {
		t.Fatalf("LoadTable state: %v", err)
	}
	e, err := NewEvaluator(turbine, state)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return e
}

// TestEvaluator_LookupOrder tests turbine, state and generic fallback resolution.
func TestEvaluator_LookupOrder(t *testing.T) {
	e := testEvaluator(t)

	tests := []struct {
		label    string
		speed    float64
		expected float64
	}{
		// Turbine table.
		{OffshoreLabel, 12, 0.8},
		// State table, exact and interpolated.
		{"TX", 4, 0.2},
		{"IA", 8, 0.525},
		// Unknown state falls back to the generic turbine.
		{"ZZ", 4, 0.1},
		{GenericLabel, 8, 0.55},
		// Edge values held outside the table.
		{"TX", 40, 1},
		{"TX", -1, 0},
	}

	for _, tt := range tests {
		got := e.Power(tt.speed, tt.label)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Power(%.1f, %q): expected %.4f, got %.4f", tt.speed, tt.label, tt.expected, got)
		}
	}

	if got := e.Power(math.NaN(), "TX"); !math.IsNaN(got) {
		t.Errorf("NaN speed should give NaN, got %v", got)
	}
}

func TestCurveLabel(t *testing.T) {
	tests := []struct {
		plant domain.Plant
		want  string
	}{
		{domain.Plant{Category: domain.CategoryWind, State: "tx"}, "TX"},
		{domain.Plant{Category: domain.CategoryWindOffshore, State: "MA"}, OffshoreLabel},
	}
	for _, tt := range tests {
		if got := CurveLabel(tt.plant); got != tt.want {
			t.Errorf("CurveLabel(%+v) = %q, want %q", tt.plant, got, tt.want)
		}
	}
}

// TestDefault_EmbeddedTables tests that the embedded tables load and behave like power curves.
func TestDefault_EmbeddedTables(t *testing.T) {
	e, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	again, _ := Default()
	if e != again {
		t.Error("Default should return the same evaluator on every call")
	}

	for _, label := range append(e.state.Labels(), GenericLabel, OffshoreLabel) {
		prev := -1.0
		for v := 0.0; v <= 25; v += 0.25 {
			p := e.Power(v, label)
			if p < 0 || p > 1 {
				t.Fatalf("%s: Power(%.2f) = %.4f outside [0, 1]", label, v, p)
			}
			if p < prev-1e-12 {
				t.Fatalf("%s: curve decreases below cut-out at %.2f m/s", label, v)
			}
			prev = p
		}
		if got := e.Power(1, label); got != 0 {
			t.Errorf("%s: expected no output below cut-in, got %.4f", label, got)
		}
		if got := e.Power(20, label); got != 1 {
			t.Errorf("%s: expected rated output at 20 m/s, got %.4f", label, got)
		}
	}
}

func TestLoadTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"no curves", "wspd\n0\n1\n"},
		{"bad speed", "wspd,A\nx,0\n1,1\n"},
		{"bad value", "wspd,A\n0,0\n1,y\n"},
		{"single sample", "wspd,A\n0,0\n"},
		{"unsorted speeds", "wspd,A\n0,0\n2,1\n1,1\n"},
		{"empty name", "wspd,\n0,0\n1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTable(strings.NewReader(tt.csv)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestNewEvaluator_RequiresGeneric(t *testing.T) {
	state, _ := LoadTable(strings.NewReader(testStateCSV))
	if _, err := NewEvaluator(state, state); err == nil {
		t.Error("expected error when the turbine table lacks the generic curve")
	}
	if _, err := NewEvaluator(nil, state); err == nil {
		t.Error("expected error for nil turbine table")
	}
}

func TestWindSpeed(t *testing.T) {
	if got := WindSpeed(3, 4); got != 5 {
		t.Errorf("WindSpeed(3, 4) = %v, want 5", got)
	}
}

func TestNormalizeIrradiance(t *testing.T) {
	got := NormalizeIrradiance([]float64{0, 250, 500, math.NaN(), 1000})
	want := []float64{0, 0.25, 0.5, math.NaN(), 1}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("index %d: expected NaN, got %v", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	for _, window := range [][]float64{{}, {0, 0, 0}, {math.NaN()}} {
		for i, v := range NormalizeIrradiance(window) {
			if !math.IsNaN(window[i]) && v != 0 {
				t.Errorf("dark window %v: index %d = %v, want 0", window, i, v)
			}
		}
	}
}
