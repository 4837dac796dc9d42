package odds

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/charleschow/squares-odds/internal/core/digits"
)

const (
	minImplied = 0.01
	maxImplied = 0.99
)

var hundred = decimal.NewFromInt(100)

// ImpliedFromAmerican converts an American moneyline to the bookmaker's
// implied win probability: |odds|/(|odds|+100) for favourites and
// 100/(odds+100) for underdogs, clamped to [0.01, 0.99].
func ImpliedFromAmerican(american decimal.Decimal) (float64, error) {
	if american.Abs().LessThan(hundred) {
		return 0, fmt.Errorf("american odds %s: magnitude below 100", american)
	}

	var p decimal.Decimal
	if american.IsNegative() {
		abs := american.Abs()
		p = abs.Div(abs.Add(hundred))
	} else {
		p = hundred.Div(american.Add(hundred))
	}

	f, _ := p.Float64()
	return math.Max(minImplied, math.Min(maxImplied, f)), nil
}

// ParseAmerican accepts "-110", "+150" or "150".
func ParseAmerican(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse american odds %q: %w", s, err)
	}
	return d, nil
}

// RemoveVig2 rescales two implied probabilities so they sum to one,
// stripping the bookmaker's overround.
func RemoveVig2(a, b float64) (float64, float64) {
	total := a + b
	if total <= 0 {
		return 0.5, 0.5
	}
	return a / total, b / total
}

// maxPoisson bounds the support of the discretized point distributions. NFL
// team totals past 90 do not occur.
const maxPoisson = 90

// PoissonPMF returns P(X = k) for a Poisson distribution with mean mu.
func PoissonPMF(mu float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if mu <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(mu) - mu - lg)
}

// PoissonDigits folds a Poisson(mu) points distribution onto the last digit.
func PoissonDigits(mu float64) digits.Vector {
	var v digits.Vector
	for k := 0; k <= maxPoisson; k++ {
		v[k%digits.Size] += PoissonPMF(mu, k)
	}
	return v.Normalize()
}

// PoissonMatrix is the independent joint digit distribution of two Poisson
// point totals.
func PoissonMatrix(homeMu, awayMu float64) digits.Matrix {
	return digits.Outer(PoissonDigits(homeMu), PoissonDigits(awayMu))
}
