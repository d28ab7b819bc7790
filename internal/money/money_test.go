package money

import "testing"

func TestToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{1, 100},
		{12.34, 1234},
		{0.005, 0}, // half-to-even
		{0.015, 2},
		{999999.99, 99999999},
	}
	for _, tc := range tests {
		if got := ToCents(tc.in); got != tc.want {
			t.Fatalf("ToCents(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSatoshiRoundTrip(t *testing.T) {
	sats := ToSatoshis(1.5)
	if sats != 150_000_000 {
		t.Fatalf("ToSatoshis(1.5) = %d", sats)
	}
	if back := ToCrypto(sats); back != 1.5 {
		t.Fatalf("ToCrypto(%d) = %v", sats, back)
	}
}
