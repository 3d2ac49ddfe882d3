package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/vovakirdan/antcraft/internal/sim"
)

func TestEncodeHeader(t *testing.T) {
	frame, err := Encode(0x01020304, TickAck{Tick: 9})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	expected := []byte{0x04, 0x00, 0x01, 0x02, 0x03, 0x04, 0x00, 0x04, 0, 0, 0, 9}
	if !bytes.Equal(frame, expected) {
		t.Errorf("Encode() = % x, expected % x", frame, expected)
	}

	frame, _ = Encode(1, Disconnect{Reason: ReasonDesync})
	if frame[1]&FlagReliable == 0 {
		t.Error("DISCONNECT frame missing the reliable flag")
	}
}

func TestCommandLayout(t *testing.T) {
	c := sim.Command{
		Type:     sim.CmdMove,
		Player:   1,
		Tick:     258,
		Entities: []sim.EntityID{7, 8},
		TargetX:  -1,
		TargetY:  1500,
		Target:   3,
	}
	b := AppendCommand(nil, c)
	expected := []byte{
		0x01, 0x01,
		0, 0, 1, 2,
		0, 2,
		0, 0, 0, 7,
		0, 0, 0, 8,
		0xff, 0xff, 0xff, 0xff,
		0, 0, 0x05, 0xdc,
		0, 0, 0, 3,
	}
	if !bytes.Equal(b, expected) {
		t.Fatalf("AppendCommand() = % x, expected % x", b, expected)
	}
	got, n, err := DecodeCommand(b)
	if err != nil {
		t.Fatalf("DecodeCommand() failed: %v", err)
	}
	if n != len(b) || !reflect.DeepEqual(got, c) {
		t.Errorf("DecodeCommand() = %+v (%d bytes), expected %+v", got, n, c)
	}
}

func TestDecodeMessages(t *testing.T) {
	digest := sim.Digest{1, 2, 3, 31: 0xff}
	tests := []struct {
		name string
		msg  Message
	}{
		{"connect", Connect{Version: Version, Fingerprint: 0xdeadbeef, Name: "worker"}},
		{"connect ack", ConnectAck{Seed: 42, TickRate: 10, Player: 1}},
		{"empty commands", Commands{Tick: 12, Player: 0}},
		{"commands", Commands{Tick: 12, Player: 1, Commands: []sim.Command{
			{Type: sim.CmdStop, Player: 1, Tick: 12, Entities: []sim.EntityID{5}},
			{Type: sim.CmdSpawnAnt, Player: 1, Tick: 12, Target: 2},
		}}},
		{"hash", HashCheck{Tick: 30, Digest: digest}},
		{"desync", Desync{Tick: 40, Digest: digest, Dump: []byte("dump")}},
		{"disconnect", Disconnect{Reason: ReasonRulesMismatch}},
		{"ack", Ack{Seq: 77}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := Encode(5, tc.msg)
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			h, msg, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if h.Type != tc.msg.Type() || h.Seq != 5 {
				t.Errorf("header = %+v", h)
			}
			if !reflect.DeepEqual(msg, tc.msg) {
				t.Errorf("Decode() = %+v, expected %+v", msg, tc.msg)
			}
		})
	}
}

func TestConnectNameTruncation(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected int
	}{
		{"short", "bob", 3},
		{"ascii at limit", strings.Repeat("a", 255), 255},
		{"ascii over limit", strings.Repeat("a", 300), 255},
		{"rune across limit", strings.Repeat("a", 254) + "é", 254},
		{"three byte runes", strings.Repeat("世", 100), 255},
		{"three byte runes offset", "a" + strings.Repeat("世", 100), 253},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(1, Connect{Version: Version, Name: tt.in})
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			_, msg, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			got := msg.(Connect).Name
			if len(got) != tt.expected {
				t.Errorf("name length = %d, expected %d", len(got), tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("name %q is not valid UTF-8", got)
			}
			if !strings.HasPrefix(tt.in, got) {
				t.Errorf("name %q is not a prefix of the input", got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, _ := Encode(1, HashCheck{Tick: 1})

	tests := []struct {
		name  string
		frame []byte
		err   error
	}{
		{"empty", nil, ErrShortFrame},
		{"short header", []byte{1, 0, 0}, ErrShortFrame},
		{"payload shorter than header says", valid[:len(valid)-1], ErrShortFrame},
		{"unknown type", []byte{0x7f, 0, 0, 0, 0, 1, 0, 0}, ErrUnknownType},
		{"truncated fields", []byte{byte(MsgConnectAck), 0, 0, 0, 0, 1, 0, 2, 0, 1}, ErrShortFrame},
		{"ids overrun", append([]byte{byte(MsgCommands), 0, 0, 0, 0, 1, 0, 14},
			0, 0, 0, 1, 0, 0, 1, 4, 1, 0, 0, 0, 0, 0), ErrShortFrame},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.frame)
			if !errors.Is(err, tc.err) {
				t.Errorf("Decode() error = %v, expected %v", err, tc.err)
			}
		})
	}
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(1, Desync{Dump: make([]byte, MaxPayload)})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Encode() error = %v, expected %v", err, ErrTooLarge)
	}
}

func TestDumpCompression(t *testing.T) {
	dump := bytes.Repeat([]byte(`{"entity": 1, "hp": 20}`), 500)
	m := NewDesync(10, sim.Digest{}, dump)
	if len(m.Dump) == 0 || len(m.Dump) >= len(dump) {
		t.Fatalf("compressed dump is %d bytes from %d", len(m.Dump), len(dump))
	}
	out, err := DecompressDump(m.Dump)
	if err != nil {
		t.Fatalf("DecompressDump() failed: %v", err)
	}
	if !bytes.Equal(out, dump) {
		t.Error("DecompressDump() did not restore the dump")
	}
	if _, err := DecompressDump([]byte("not zstd")); err == nil {
		t.Error("DecompressDump() accepted garbage")
	}
}

func TestReliableTypes(t *testing.T) {
	for typ, want := range map[MessageType]bool{
		MsgConnect: true, MsgConnectAck: true, MsgHashCheck: true, MsgDesync: true,
		MsgDisconnect: true, MsgCommands: false, MsgTickAck: false, MsgAck: false,
	} {
		if typ.Reliable() != want {
			t.Errorf("%s.Reliable() = %v, expected %v", typ, typ.Reliable(), want)
		}
	}
}
