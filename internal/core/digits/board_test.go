package digits

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestToBoard_SumsToHundred(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		var m Matrix
		for h := range Size {
			for a := range Size {
				m[h][a] = rng.Float64() * math.Pow(10, float64(rng.IntN(6)))
			}
		}

		rows, cols := IdentityLabels(), IdentityLabels()
		rng.Shuffle(Size, func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		rng.Shuffle(Size, func(i, j int) { cols[i], cols[j] = cols[j], cols[i] })

		b := ToBoard(m, rows, cols)
		if s := b.Sum(); math.Abs(s-100) > 1e-6 {
			t.Fatalf("iteration %d: board sum = %v", i, s)
		}
		for r := range Size {
			for c := range Size {
				if b[r][c] < 0 || b[r][c] > 100 {
					t.Fatalf("cell out of range: %v", b[r][c])
				}
			}
		}
	}
}

func TestToBoard_FollowsPermutation(t *testing.T) {
	rows := Labels{5, 0, 1, 2, 3, 4, 6, 7, 8, 9}
	cols := IdentityLabels()

	b := ToBoard(Cell(14, 10), rows, cols)

	r, c := rows.IndexOf(4), cols.IndexOf(0)
	if math.Abs(b[r][c]-100) > 1e-9 {
		t.Errorf("board[%d][%d] = %v, want 100", r, c, b[r][c])
	}
	if b[0][0] != 0 {
		t.Errorf("row label 5 should be empty, got %v", b[0][0])
	}
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Labels
		wantErr bool
	}{
		{name: "empty is identity", in: "", want: IdentityLabels()},
		{name: "shuffled", in: "5,0,1,2,3,4,6,7,8,9", want: Labels{5, 0, 1, 2, 3, 4, 6, 7, 8, 9}},
		{name: "spaces", in: " 9, 8,7,6,5,4,3,2,1,0 ", want: Labels{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{name: "too short", in: "1,2,3", wantErr: true},
		{name: "duplicate", in: "0,0,1,2,3,4,5,6,7,8", wantErr: true},
		{name: "out of range", in: "0,1,2,3,4,5,6,7,8,10", wantErr: true},
		{name: "not a number", in: "a,1,2,3,4,5,6,7,8,9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabels(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLabels) {
					t.Fatalf("err = %v, want ErrInvalidLabels", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabelsStringParses(t *testing.T) {
	l, err := ParseLabels("5, 0,1,2,3,4,6,7,8,9")
	if err != nil {
		t.Fatal(err)
	}
	if l.String() != "5,0,1,2,3,4,6,7,8,9" {
		t.Errorf("String() = %q", l.String())
	}
	back, err := ParseLabels(l.String())
	if err != nil || back != l {
		t.Errorf("reparse = %v, %v", back, err)
	}
}
