package odds

import (
	"math"
	"testing"
)

func TestImpliedFromAmerican(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"-110", 110.0 / 210.0},
		{"+150", 0.4},
		{"150", 0.4},
		{"-100", 0.5},
		{"+100000", 0.01},
		{"-100000", 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseAmerican(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			got, err := ImpliedFromAmerican(d)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImpliedFromAmerican_Invalid(t *testing.T) {
	d, _ := ParseAmerican("50")
	if _, err := ImpliedFromAmerican(d); err == nil {
		t.Error("expected error for |odds| < 100")
	}
	if _, err := ParseAmerican("even"); err == nil {
		t.Error("expected parse error")
	}
}

func TestRemoveVig2(t *testing.T) {
	a, b := RemoveVig2(110.0/210.0, 110.0/210.0)
	if math.Abs(a-0.5) > 1e-12 || math.Abs(b-0.5) > 1e-12 {
		t.Errorf("got %v %v", a, b)
	}
}

func TestPoissonDigits(t *testing.T) {
	v := PoissonDigits(23)
	var sum float64
	for _, p := range v {
		if p < 0 {
			t.Fatalf("negative probability %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum = %v", sum)
	}

	zero := PoissonDigits(0)
	if zero[0] != 1 {
		t.Errorf("mu=0 should put all mass on digit 0, got %v", zero)
	}
}

func TestModeFor(t *testing.T) {
	if got := ModeFor([]string{SourceHistorical, SourceTeamContext}); got != ModeBaseline {
		t.Errorf("two sources -> %s", got)
	}
	if got := ModeFor([]string{SourceHistorical, SourceTeamContext, SourceMoneylines}); got != ModeFull {
		t.Errorf("three sources -> %s", got)
	}
	if got := ModeFor([]string{SourceHistorical, SourceHistorical, SourceHistorical}); got != ModeBaseline {
		t.Errorf("duplicates must not count, got %s", got)
	}
	if got := ModeFor([]string{SourceFallback}); got != ModeBaseline {
		t.Errorf("fallback -> %s", got)
	}
}
