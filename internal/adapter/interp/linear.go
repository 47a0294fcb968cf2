package interp

import (
	"fmt"
	"math"
	"sort"
)

// Curve is a sampled function y = f(x) over strictly increasing X.
type Curve struct {
	X []float64 // Sample abscissae (e.g., wind speed in m/s).
	Y []float64 // Sample values (e.g., normalized power).
}

// Validate checks if the curve is usable for interpolation.
func (c *Curve) Validate() error {
	if len(c.X) < 2 {
		return fmt.Errorf("curve must have at least 2 samples")
	}
	if len(c.Y) != len(c.X) {
		return fmt.Errorf("number of values (%d) must match X samples (%d)", len(c.Y), len(c.X))
	}
	for i := 1; i < len(c.X); i++ {
		if c.X[i] <= c.X[i-1] {
			return fmt.Errorf("X samples must be strictly increasing")
		}
	}
	for i, y := range c.Y {
		if math.IsNaN(y) {
			return fmt.Errorf("value %d is NaN", i)
		}
	}
	return nil
}

// At evaluates the curve at x by linear interpolation.
// Outside [X[0], X[n-1]] the edge value is held. NaN in gives NaN out.
func (c *Curve) At(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	n := len(c.X)
	if x <= c.X[0] {
		return c.Y[0]
	}
	if x >= c.X[n-1] {
		return c.Y[n-1]
	}

	// First sample strictly greater than x; 1 <= i <= n-1 here.
	i := sort.SearchFloat64s(c.X, x)
	if c.X[i] == x {
		return c.Y[i]
	}
	x0, x1 := c.X[i-1], c.X[i]
	t := (x - x0) / (x1 - x0)
	return (1-t)*c.Y[i-1] + t*c.Y[i]
}
