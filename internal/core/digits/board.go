package digits

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidLabels = errors.New("invalid board labels")

// Labels is one axis of a squares board: Labels[i] is the digit printed on
// row (or column) i. A valid permutation holds each digit 0-9 exactly once.
type Labels [Size]int

// IdentityLabels is the unshuffled 0..9 axis.
func IdentityLabels() Labels {
	var l Labels
	for i := range Size {
		l[i] = i
	}
	return l
}

func (l Labels) Validate() error {
	var seen [Size]bool
	for i, d := range l {
		if d < 0 || d >= Size {
			return fmt.Errorf("%w: position %d holds %d", ErrInvalidLabels, i, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: digit %d repeated", ErrInvalidLabels, d)
		}
		seen[d] = true
	}
	return nil
}

// IndexOf returns the axis position carrying digit d, or -1.
func (l Labels) IndexOf(d int) int {
	for i, v := range l {
		if v == d {
			return i
		}
	}
	return -1
}

// String renders the axis in the form ParseLabels reads.
func (l Labels) String() string {
	parts := make([]string, Size)
	for i, d := range l {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ParseLabels reads "5,0,1,2,3,4,6,7,8,9". An empty string is the identity.
func ParseLabels(s string) (Labels, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IdentityLabels(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != Size {
		return Labels{}, fmt.Errorf("%w: want %d digits, got %d", ErrInvalidLabels, Size, len(parts))
	}
	var l Labels
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Labels{}, fmt.Errorf("%w: %q is not a digit", ErrInvalidLabels, p)
		}
		l[i] = n
	}
	if err := l.Validate(); err != nil {
		return Labels{}, err
	}
	return l, nil
}

// Board is the render-ready percentage grid: Board[r][c] is the chance, in
// percent, that the final digits are (rows[r], cols[c]).
type Board [Size][Size]float64

// ToBoard re-indexes m onto the given label permutation and scales it so the
// grid sums to exactly 100. Scaling is proportional so the relative shape is
// preserved under floating-point drift.
func ToBoard(m Matrix, rows, cols Labels) Board {
	m = m.Normalize()

	var b Board
	var sum float64
	for r := range Size {
		for c := range Size {
			v := m[rows[r]][cols[c]] * 100
			b[r][c] = v
			sum += v
		}
	}
	if sum <= 0 {
		for r := range Size {
			for c := range Size {
				b[r][c] = 1
			}
		}
		return b
	}

	scale := 100 / sum
	for r := range Size {
		for c := range Size {
			b[r][c] *= scale
		}
	}
	return b
}

func (b Board) Sum() float64 {
	var s float64
	for r := range Size {
		for c := range Size {
			s += b[r][c]
		}
	}
	return s
}
