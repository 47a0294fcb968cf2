// Package powercurve converts wind speed and irradiance into normalized plant output.
package powercurve

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.ngs.io/gridprofiles/internal/adapter/interp"
	"go.ngs.io/gridprofiles/internal/domain"
)

const (
	// OffshoreLabel is the pseudo-region used by offshore wind farms.
	OffshoreLabel = "Offshore"
	// GenericLabel is the turbine curve used when a state has no average curve.
	GenericLabel = "IEC class 2"
)

//go:embed data/turbine_curves.csv
var turbineCSV []byte

//go:embed data/state_curves.csv
var stateCSV []byte

// Table holds named power curves sampled on a common wind speed axis.
type Table struct {
	curves map[string]*interp.Curve
}

// LoadTable parses a curve table. The first column is wind speed in m/s;
// every other column is a curve named by its header.
func LoadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read curve header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("curve table needs a speed column and at least one curve, got %v", header)
	}

	names := make([]string, len(header)-1)
	for i, h := range header[1:] {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			return nil, fmt.Errorf("curve column %d has an empty name", i+1)
		}
	}

	speeds := make([]float64, 0, 64)
	values := make([][]float64, len(names))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read curve record: %w", err)
		}

		speed, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid wind speed %q: %w", record[0], err)
		}
		speeds = append(speeds, speed)

		for i := range names {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s at %.2f m/s: %w", names[i], speed, err)
			}
			values[i] = append(values[i], v)
		}
	}

	t := &Table{curves: make(map[string]*interp.Curve, len(names))}
	for i, name := range names {
		c := &interp.Curve{X: speeds, Y: values[i]}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid curve %s: %w", name, err)
		}
		t.curves[name] = c
	}
	return t, nil
}

// LoadTableFile reads a curve table from disk.
func LoadTableFile(path string) (*Table, error) {
	//nolint:gosec // G304: Path comes from configuration.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open curve table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadTable(f)
}

// Curve returns the named curve.
func (t *Table) Curve(label string) (*interp.Curve, bool) {
	c, ok := t.curves[label]
	return c, ok
}

// Labels returns the curve names in sorted order.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.curves))
	for name := range t.curves {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	return labels
}

// Evaluator looks up turbine curves first and state average curves second.
type Evaluator struct {
	turbine *Table
	state   *Table
}

// NewEvaluator combines a turbine table and a state table.
// The turbine table must carry the generic fallback curve.
func NewEvaluator(turbine, state *Table) (*Evaluator, error) {
	if turbine == nil || state == nil {
		return nil, fmt.Errorf("both turbine and state curve tables are required")
	}
	if _, ok := turbine.Curve(GenericLabel); !ok {
		return nil, fmt.Errorf("turbine table is missing the %q curve", GenericLabel)
	}
	return &Evaluator{turbine: turbine, state: state}, nil
}

var (
	defaultOnce sync.Once
	defaultEval *Evaluator
	defaultErr  error
)

// Default returns the evaluator built from the embedded tables.
// The tables are parsed once per process.
func Default() (*Evaluator, error) {
	defaultOnce.Do(func() {
		turbine, err := LoadTable(bytes.NewReader(turbineCSV))
		if err != nil {
			defaultErr = fmt.Errorf("embedded turbine curves: %w", err)
			return
		}
		state, err := LoadTable(bytes.NewReader(stateCSV))
		if err != nil {
			defaultErr = fmt.Errorf("embedded state curves: %w", err)
			return
		}
		defaultEval, defaultErr = NewEvaluator(turbine, state)
	})
	return defaultEval, defaultErr
}

// Tables returns the turbine and state tables.
func (e *Evaluator) Tables() (turbine, state *Table) {
	return e.turbine, e.state
}

// CurveFor resolves the curve used for a label.
func (e *Evaluator) CurveFor(label string) *interp.Curve {
	if c, ok := e.turbine.Curve(label); ok {
		return c
	}
	if c, ok := e.state.Curve(label); ok {
		return c
	}
	c, _ := e.turbine.Curve(GenericLabel)
	return c
}

// Power returns the normalized output at a wind speed for a curve label.
func (e *Evaluator) Power(speed float64, label string) float64 {
	return e.CurveFor(label).At(speed)
}

// CurveLabel returns the curve label for a wind plant.
func CurveLabel(p domain.Plant) string {
	if p.Category == domain.CategoryWindOffshore {
		return OffshoreLabel
	}
	return strings.ToUpper(strings.TrimSpace(p.State))
}

// WindSpeed returns the horizontal wind speed magnitude.
func WindSpeed(u, v float64) float64 {
	return math.Sqrt(u*u + v*v)
}
