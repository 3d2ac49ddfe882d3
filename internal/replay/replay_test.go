package replay

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vovakirdan/antcraft/internal/sim"
)

func testRules() sim.Rules {
	r := sim.DefaultRules()
	r.MapWidth, r.MapHeight = 40, 24
	return r
}

func testHeader() Header {
	rules := testRules()
	return Header{MatchID: "m-1", Seed: 9, Fingerprint: rules.Fingerprint(), Rules: rules, Players: [sim.Players]string{"ann", "bob"}}
}

// record runs a short match with a few orders and logs it to w, returning
// the final state.
func record(t *testing.T, rec *Recorder, hdr Header, ticks uint32) *sim.State {
	t.Helper()
	st := sim.NewMatch(hdr.Seed, hdr.Rules)
	v := st.ViewFor(0)
	ants := v.Own(sim.KindAnt)
	for st.Tick < ticks {
		var cmds []sim.Command
		if st.Tick%15 == 3 && len(ants) > 0 {
			cmds = append(cmds, sim.Command{
				Type:     sim.CmdMove,
				Player:   0,
				Tick:     st.Tick,
				Entities: []sim.EntityID{ants[0].ID},
				TargetX:  sim.TileCenter(10 + int32(st.Tick%7)),
				TargetY:  sim.TileCenter(12),
			})
		}
		// Quiet ticks are left out of the log on purpose.
		if len(cmds) > 0 {
			if err := rec.Record(st.Tick, cmds); err != nil {
				t.Fatalf("Record() failed: %v", err)
			}
		}
		st.Advance(cmds)
		if st.Tick%10 == 0 {
			if err := rec.Checkpoint(st.Tick, st.Digest()); err != nil {
				t.Fatalf("Checkpoint() failed: %v", err)
			}
		}
	}
	return st
}

func TestRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replays", "m-1.acr")
	hdr := testHeader()
	rec, err := Create(path, hdr)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	final := record(t, rec, hdr, 100)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer r.Close()
	got := r.Header()
	if got.MatchID != hdr.MatchID || got.Seed != hdr.Seed || got.Players != hdr.Players {
		t.Errorf("Header() = %+v, expected %+v", got, hdr)
	}
	if !reflect.DeepEqual(got.Rules, hdr.Rules) {
		t.Error("Header().Rules differ from the recorded rules")
	}

	res, err := Verify(r, 25)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if res.Final.Tick != 100 {
		t.Errorf("Final.Tick = %d, expected 100", res.Final.Tick)
	}
	if res.Final.Digest != final.Digest() {
		t.Error("Final.Digest differs from the recorded run")
	}
	if res.Verified != 10 {
		t.Errorf("Verified = %d, expected 10", res.Verified)
	}
	var ticks []uint32
	for _, c := range res.Checkpoints {
		ticks = append(ticks, c.Tick)
	}
	if expected := []uint32{0, 25, 50, 75, 100}; !reflect.DeepEqual(ticks, expected) {
		t.Errorf("checkpoint ticks = %v, expected %v", ticks, expected)
	}
}

func TestFramesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, testHeader())
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}
	cmd := sim.Command{Type: sim.CmdAttack, Player: 1, Tick: 4, Entities: []sim.EntityID{3, 8}, Target: 12}
	if err := rec.Record(4, []sim.Command{cmd}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := rec.Checkpoint(5, sim.Digest{0xaa}); err != nil {
		t.Fatalf("Checkpoint() failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()

	expected := []Frame{
		{Tick: 4, Commands: []sim.Command{cmd}},
		{Tick: 5, Checkpoint: true, Digest: sim.Digest{0xaa}},
	}
	for i, want := range expected {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next() #%d failed: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Next() #%d = %+v, expected %+v", i, got, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end = %v, expected io.EOF", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	var buf bytes.Buffer
	hdr := testHeader()
	rec, err := NewRecorder(&buf, hdr)
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}
	record(t, rec, hdr, 20)
	if err := rec.Checkpoint(20, sim.Digest{1}); err != nil {
		t.Fatalf("Checkpoint() failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()
	if _, err := Verify(r, 0); !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify() = %v, expected %v", err, ErrMismatch)
	}
}

func TestOpenErrors(t *testing.T) {
	var notReplay bytes.Buffer
	rec, err := NewRecorder(&notReplay, testHeader())
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	valid := notReplay.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "plain text", data: []byte("hello, this is not zstd")},
		{name: "truncated", data: valid[:len(valid)/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Open(bytes.NewReader(tt.data))
			if err == nil {
				r.Close()
				t.Fatal("Open() succeeded, expected an error")
			}
		})
	}
}

func TestVerifyRulesMismatch(t *testing.T) {
	var buf bytes.Buffer
	hdr := testHeader()
	hdr.Fingerprint++
	rec, err := NewRecorder(&buf, hdr)
	if err != nil {
		t.Fatalf("NewRecorder() failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	r, err := Open(&buf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()
	if _, err := Verify(r, 0); err == nil {
		t.Error("Verify() succeeded with a wrong fingerprint")
	}
}
