// Package digits holds the 10x10 score-digit probability surfaces a squares
// board is priced from.
package digits

import "math"

const Size = 10

// Vector is a distribution over one side's final-score last digit.
type Vector [Size]float64

// Matrix is a joint distribution indexed [homeDigit][awayDigit].
type Matrix [Size][Size]float64

// Uniform returns the 1/100 matrix used whenever a surface degenerates.
func Uniform() Matrix {
	var m Matrix
	for h := range Size {
		for a := range Size {
			m[h][a] = 1.0 / (Size * Size)
		}
	}
	return m
}

// UniformVector returns the flat 1/10 digit distribution.
func UniformVector() Vector {
	var v Vector
	for i := range Size {
		v[i] = 1.0 / Size
	}
	return v
}

// Cell returns a matrix with all mass on one digit pair. Scores are reduced
// mod 10 so callers may pass raw points.
func Cell(homeScore, awayScore int) Matrix {
	var m Matrix
	m[Digit(homeScore)][Digit(awayScore)] = 1
	return m
}

// Digit returns the last base-10 digit of a non-negative score.
func Digit(score int) int {
	d := score % Size
	if d < 0 {
		d += Size
	}
	return d
}

func (m Matrix) Sum() float64 {
	var s float64
	for h := range Size {
		for a := range Size {
			s += m[h][a]
		}
	}
	return s
}

// Normalize rescales m to sum to 1. Negative entries are floored at zero. An
// all-zero, non-finite or otherwise degenerate input yields Uniform.
func (m Matrix) Normalize() Matrix {
	var s float64
	for h := range Size {
		for a := range Size {
			v := m[h][a]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Uniform()
			}
			if v > 0 {
				s += v
			}
		}
	}
	if s <= 0 || math.IsInf(s, 0) {
		return Uniform()
	}

	var out Matrix
	for h := range Size {
		for a := range Size {
			if v := m[h][a]; v > 0 {
				out[h][a] = v / s
			}
		}
	}
	return out
}

// Normalize rescales v to sum to 1, falling back to UniformVector.
func (v Vector) Normalize() Vector {
	var s float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return UniformVector()
		}
		if x > 0 {
			s += x
		}
	}
	if s <= 0 {
		return UniformVector()
	}
	var out Vector
	for i, x := range v {
		if x > 0 {
			out[i] = x / s
		}
	}
	return out
}

// Outer builds the independent joint distribution home ⊗ away.
func Outer(home, away Vector) Matrix {
	home, away = home.Normalize(), away.Normalize()
	var m Matrix
	for h := range Size {
		for a := range Size {
			m[h][a] = home[h] * away[a]
		}
	}
	return m.Normalize()
}

// Blend returns the normalized weighted sum of matrices. Weights need not sum
// to one; zero or negative weights drop their matrix.
func Blend(weights []float64, ms []Matrix) Matrix {
	var out Matrix
	for i, m := range ms {
		if i >= len(weights) || weights[i] <= 0 {
			continue
		}
		w := weights[i]
		for h := range Size {
			for a := range Size {
				out[h][a] += w * m[h][a]
			}
		}
	}
	return out.Normalize()
}

// Mix is the two-matrix case of Blend: (1-w)·prior + w·live.
func Mix(prior, live Matrix, w float64) Matrix {
	w = math.Max(0, math.Min(1, w))
	return Blend([]float64{1 - w, w}, []Matrix{prior, live})
}

// ArgMax returns the digit pair carrying the most mass.
func (m Matrix) ArgMax() (home, away int) {
	best := math.Inf(-1)
	for h := range Size {
		for a := range Size {
			if m[h][a] > best {
				best, home, away = m[h][a], h, a
			}
		}
	}
	return home, away
}

// Histogram accumulates weighted observations into a digit vector.
type Histogram struct {
	v Vector
}

// NewSmoothedHistogram starts every bucket at prior (add-one smoothing when
// prior is 1).
func NewSmoothedHistogram(prior float64) *Histogram {
	h := &Histogram{}
	for i := range Size {
		h.v[i] = prior
	}
	return h
}

func (h *Histogram) Add(score int, weight float64) {
	h.v[Digit(score)] += weight
}

func (h *Histogram) Vector() Vector { return h.v.Normalize() }
