package sim

// LCG parameters (Numerical Recipes).
const (
	lcgMul = 1664525
	lcgInc = 1013904223
)

// Rand is the deterministic generator stored in the snapshot. It is the only
// legal randomness source for the simulation; both peers must call Next the
// same number of times in the same order.
type Rand struct {
	State uint32
}

// NewRand seeds a generator.
func NewRand(seed uint32) Rand {
	return Rand{State: seed}
}

// Next advances the generator and returns a value in [0, bound).
// A zero bound returns 0 without advancing.
func (r *Rand) Next(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	r.State = r.State*lcgMul + lcgInc
	return r.State % bound
}

// PerTick distributes a per-second rate over a window of k ticks. The amount
// for tick t is floor(r*(t+1)/k) - floor(r*t/k) with t = tick mod k, so any
// window of k consecutive ticks aligned to the boundary sums to exactly r.
func PerTick(rate int32, tick uint32, k int32) int32 {
	if rate <= 0 || k <= 0 {
		return 0
	}
	t := int64(tick % uint32(k))
	r := int64(rate)
	kk := int64(k)
	return int32(r*(t+1)/kk - r*t/kk)
}
