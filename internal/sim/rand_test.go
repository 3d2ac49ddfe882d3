package sim

import "testing"

func TestRandSequence(t *testing.T) {
	r := NewRand(0)
	expected := []uint32{23, 62, 97}
	for i, want := range expected {
		if got := r.Next(100); got != want {
			t.Errorf("Next() #%d = %d, expected %d", i, got, want)
		}
	}
	if r.State != 3519870697 {
		t.Errorf("State = %d, expected 3519870697", r.State)
	}
}

func TestRandZeroBound(t *testing.T) {
	r := NewRand(7)
	if got := r.Next(0); got != 0 {
		t.Errorf("Next(0) = %d, expected 0", got)
	}
	if r.State != 7 {
		t.Errorf("Next(0) advanced the state to %d", r.State)
	}
}

func TestPerTickConservation(t *testing.T) {
	tests := []struct {
		name string
		rate int32
		k    int32
	}{
		{"damage 5 at 10Hz", 5, 10},
		{"income 1 at 10Hz", 1, 10},
		{"rate equals k", 10, 10},
		{"rate above k", 37, 10},
		{"odd window", 7, 3},
		{"zero rate", 0, 10},
		{"large rate", 1_000_000, 60},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for window := uint32(0); window < 5; window++ {
				var sum int32
				for i := uint32(0); i < uint32(tc.k); i++ {
					n := PerTick(tc.rate, window*uint32(tc.k)+i, tc.k)
					if n < 0 {
						t.Fatalf("PerTick() returned negative %d", n)
					}
					sum += n
				}
				if sum != tc.rate {
					t.Errorf("window %d sum = %d, expected %d", window, sum, tc.rate)
				}
			}
		})
	}
}

func TestPerTickDamageSchedule(t *testing.T) {
	// 5 per second over 10 ticks lands on the odd ticks.
	for tick := uint32(0); tick < 10; tick++ {
		want := int32(tick % 2)
		if got := PerTick(5, tick, 10); got != want {
			t.Errorf("PerTick(5, %d, 10) = %d, expected %d", tick, got, want)
		}
	}
}

func TestIsqrt(t *testing.T) {
	tests := []struct {
		n, expected int64
	}{
		{0, 0}, {1, 1}, {2, 1}, {3, 1}, {4, 2}, {15, 3}, {16, 4},
		{999_999, 999}, {1_000_000, 1000}, {2_000_000, 1414},
	}
	for _, tc := range tests {
		if got := isqrt(tc.n); got != tc.expected {
			t.Errorf("isqrt(%d) = %d, expected %d", tc.n, got, tc.expected)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		n, d, expected int64
	}{
		{7, 2, 3}, {-7, 2, -4}, {6, 3, 2}, {-6, 3, -2}, {0, 5, 0}, {-1, 1000, -1},
	}
	for _, tc := range tests {
		if got := floorDiv(tc.n, tc.d); got != tc.expected {
			t.Errorf("floorDiv(%d, %d) = %d, expected %d", tc.n, tc.d, got, tc.expected)
		}
	}
}

func TestToTile(t *testing.T) {
	tests := []struct {
		m, expected int32
	}{
		{0, 0}, {999, 0}, {1000, 1}, {1500, 1}, {-1, -1}, {-1000, -1}, {-1001, -2},
	}
	for _, tc := range tests {
		if got := ToTile(tc.m); got != tc.expected {
			t.Errorf("ToTile(%d) = %d, expected %d", tc.m, got, tc.expected)
		}
	}
}
