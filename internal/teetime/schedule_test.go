package teetime

import (
	"testing"
	"time"
)

func TestPollInterval(t *testing.T) {
	cases := []struct {
		daysOut int
		want    time.Duration
	}{
		{1, 15 * time.Minute},
		{2, 30 * time.Minute},
		{3, time.Hour},
		{4, 90 * time.Minute},
		{7, 4 * time.Hour},
		{14, 11*time.Hour + 30*time.Minute},
		{15, 13 * time.Hour},
	}
	for _, tc := range cases {
		if got := PollInterval(tc.daysOut); got != tc.want {
			t.Fatalf("PollInterval(%d) = %s, want %s", tc.daysOut, got, tc.want)
		}
	}
}

func TestPollIntervalClamps(t *testing.T) {
	if got := PollInterval(0); got != 15*time.Minute {
		t.Fatalf("same-day poll should use the fastest cadence, got %s", got)
	}
	if got := PollInterval(-3); got != 15*time.Minute {
		t.Fatalf("past dates should use the fastest cadence, got %s", got)
	}
	if got := PollInterval(40); got != 13*time.Hour {
		t.Fatalf("beyond-horizon poll should use the slowest cadence, got %s", got)
	}
}

func TestPollIntervalMonotone(t *testing.T) {
	for d := 1; d < MaxIndexableDaysOut; d++ {
		if PollInterval(d) > PollInterval(d+1) {
			t.Fatalf("interval at day %d exceeds day %d", d, d+1)
		}
	}
}
