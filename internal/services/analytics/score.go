package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMinSamples is the smallest aligned sample a coefficient is computed for.
const DefaultMinSamples = 10

// Scorer computes the Pearson correlation of two aligned value sequences.
type Scorer struct {
	MinSamples int
	// Precision is the number of decimal places kept; 0 disables rounding.
	Precision int
}

// NewScorer returns a scorer rounding to six decimal places.
func NewScorer(minSamples int) Scorer {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return Scorer{MinSamples: minSamples, Precision: 6}
}

// Score returns r in [-1, 1] and true, or false when the coefficient is
// undefined: too few samples, mismatched lengths or a constant side.
func (s Scorer) Score(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < s.MinSamples || len(x) < 2 {
		return 0, false
	}
	if constant(x) || constant(y) {
		return 0, false
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	r = math.Max(-1, math.Min(1, r))
	if s.Precision > 0 {
		p := math.Pow(10, float64(s.Precision))
		r = math.Round(r*p) / p
	}
	return r, true
}

// constant is exact; a variance test would let float noise through for
// repeated fractional values.
func constant(v []float64) bool {
	return floats.Min(v) == floats.Max(v)
}
