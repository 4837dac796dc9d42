package odds

import (
	"testing"
	"time"
)

func TestRealtimeAgedAt(t *testing.T) {
	at := time.Date(2025, 10, 5, 22, 15, 0, 0, time.UTC)
	r := RealtimeResult{SnapshotAt: at}

	cases := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"later", at.Add(90 * time.Second), 90},
		{"same instant", at, 0},
		{"clock skew", at.Add(-time.Second), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.AgedAt(tc.now).SnapshotAgeSeconds; got != tc.want {
				t.Errorf("age = %v, want %v", got, tc.want)
			}
		})
	}
	if r.SnapshotAgeSeconds != 0 {
		t.Error("AgedAt mutated the receiver")
	}
}
