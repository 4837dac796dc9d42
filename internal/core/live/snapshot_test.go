package live

import (
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func TestMapStatus(t *testing.T) {
	cases := []struct {
		state, detail string
		want          Status
	}{
		{"pre", "Sun, October 5th at 4:25 PM EDT", StatusPregame},
		{"in", "7:01 - 3rd Quarter", StatusInProgress},
		{"in", "Halftime", StatusHalftime},
		{"post", "Final", StatusFinal},
		{"post", "Final/OT", StatusFinal},
		{"post", "Postponed", StatusPostponed},
		{"pre", "Canceled", StatusPostponed},
		{"", "", StatusUnknown},
	}
	for _, tc := range cases {
		if got := MapStatus(tc.state, tc.detail); got != tc.want {
			t.Errorf("MapStatus(%q, %q) = %s, want %s", tc.state, tc.detail, got, tc.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"7:01", intp(421)},
		{"15:00", intp(900)},
		{"0:00", intp(0)},
		{"16:30", intp(900)},
		{" 2:05 ", intp(125)},
		{"End of 3rd", nil},
		{"", nil},
		{"1:75", nil},
	}
	for _, tc := range cases {
		got := ParseClock(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("ParseClock(%q) = %d, want nil", tc.in, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("ParseClock(%q) = %v, want %d", tc.in, got, *tc.want)
		}
	}
}

func TestRemainingGameSeconds(t *testing.T) {
	cases := []struct {
		name   string
		status Status
		period int
		secs   *int
		want   *int
	}{
		{"final", StatusFinal, 4, nil, intp(0)},
		{"postponed", StatusPostponed, 0, nil, intp(0)},
		{"pregame", StatusPregame, 0, nil, intp(3600)},
		{"halftime", StatusHalftime, 2, intp(0), intp(1800)},
		{"q1", StatusInProgress, 1, intp(900), intp(3600)},
		{"q3", StatusInProgress, 3, intp(421), intp(1321)},
		{"overtime", StatusInProgress, 5, intp(300), intp(300)},
		{"unknown clock", StatusInProgress, 2, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RemainingGameSeconds(tc.status, tc.period, tc.secs)
			if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPollInterval(t *testing.T) {
	in := func(rem *int) *Snapshot {
		return &Snapshot{Status: StatusInProgress, Clock: Clock{GameSecondsRemaining: rem}}
	}
	cases := []struct {
		name string
		snap *Snapshot
		want time.Duration
	}{
		{"late", in(intp(8 * 60)), 5 * time.Second},
		{"mid", in(intp(20 * 60)), 8 * time.Second},
		{"early", in(intp(50 * 60)), 12 * time.Second},
		{"unknown clock", in(nil), 12 * time.Second},
		{"halftime", &Snapshot{Status: StatusHalftime}, 20 * time.Second},
		{"pregame", &Snapshot{Status: StatusPregame}, 45 * time.Second},
		{"final", &Snapshot{Status: StatusFinal}, 60 * time.Second},
		{"not found", nil, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := PollInterval(tc.snap); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
