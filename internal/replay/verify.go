package replay

import (
	"errors"
	"fmt"
	"io"

	"github.com/vovakirdan/antcraft/internal/sim"
)

// Checkpoint is the digest of the state at a tick boundary.
type Checkpoint struct {
	Tick   uint32
	Digest sim.Digest
}

// Result summarises a verified replay.
type Result struct {
	Checkpoints []Checkpoint
	Verified    int // recorded checkpoints that matched
	Final       Checkpoint
	GameOver    bool
	Winner      sim.PlayerID
}

// Verify re-runs the replay on a fresh match and compares every recorded
// checkpoint. It returns a digest every interval ticks (interval 0 means
// only the recorded checkpoints) and the final digest.
func Verify(r *Reader, interval uint32) (Result, error) {
	hdr := r.Header()
	if fp := hdr.Rules.Fingerprint(); fp != hdr.Fingerprint {
		return Result{}, fmt.Errorf("replay: rules fingerprint %08x does not match header %08x", fp, hdr.Fingerprint)
	}
	st := sim.NewMatch(hdr.Seed, hdr.Rules)
	var res Result

	checkpoint := func() {
		if interval > 0 && st.Tick%interval == 0 {
			res.Checkpoints = append(res.Checkpoints, Checkpoint{Tick: st.Tick, Digest: st.Digest()})
		}
	}
	checkpoint()

	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		if f.Tick < st.Tick {
			return res, fmt.Errorf("replay: frame for tick %d found after tick %d", f.Tick, st.Tick)
		}
		// Ticks without a frame ran without commands.
		for st.Tick < f.Tick {
			st.Advance(nil)
			checkpoint()
		}
		if !f.Checkpoint {
			st.Advance(f.Commands)
			checkpoint()
			continue
		}
		if d := st.Digest(); d != f.Digest {
			return res, fmt.Errorf("%w at tick %d: recorded %s, got %s", ErrMismatch, f.Tick, f.Digest.Short(), d.Short())
		}
		res.Verified++
		if interval == 0 {
			res.Checkpoints = append(res.Checkpoints, Checkpoint{Tick: f.Tick, Digest: f.Digest})
		}
	}

	res.Final = Checkpoint{Tick: st.Tick, Digest: st.Digest()}
	res.GameOver = st.GameOver
	res.Winner = st.Winner
	return res, nil
}
