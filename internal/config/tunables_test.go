package config

import "testing"

func TestTierFor(t *testing.T) {
	c := DefaultConfig().Casino

	cases := []struct {
		wagered int64
		want    string
	}{
		{0, ""},
		{999_999, ""},
		{1_000_000, "bronze"},
		{5_000_000, "silver"},
		{99_999_999, "gold"},
		{250_000_000, "diamond"},
	}
	for _, tc := range cases {
		if got := c.TierFor(tc.wagered).Name; got != tc.want {
			t.Fatalf("TierFor(%d) = %q, want %q", tc.wagered, got, tc.want)
		}
	}
}

func TestEventJobPayMultiplier(t *testing.T) {
	ev := EventSpec{Kind: "pandemic", JobPayOverride: map[string]float64{"medic": 1.5}}
	if got := ev.JobPayMultiplier("medic"); got != 1.5 {
		t.Fatalf("medic multiplier = %v, want 1.5", got)
	}
	if got := ev.JobPayMultiplier("trader"); got != 1.0 {
		t.Fatalf("trader multiplier = %v, want 1.0", got)
	}
	if got := (EventSpec{}).LossCapMultiplier(); got != 1.0 {
		t.Fatalf("zero event loss cap multiplier = %v, want 1.0", got)
	}
}
