package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/vovakirdan/antcraft/internal/sim"
)

// Connect is sent by the joining peer.
// Payload: [Version:1][Fingerprint:4][NameLen:1][Name]
type Connect struct {
	Version     uint8
	Fingerprint uint32
	Name        string
}

func (Connect) Type() MessageType { return MsgConnect }

func (m Connect) appendTo(b []byte) []byte {
	name := m.Name
	if len(name) > 255 {
		// Cut on a rune boundary so the name stays valid UTF-8.
		cut := 255
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	b = append(b, m.Version)
	b = binary.BigEndian.AppendUint32(b, m.Fingerprint)
	b = append(b, uint8(len(name)))
	return append(b, name...)
}

func decodeConnect(r *reader) Connect {
	m := Connect{Version: r.u8(), Fingerprint: r.u32()}
	m.Name = string(r.take(int(r.u8())))
	return m
}

// ConnectAck is the host's answer and fixes the match parameters.
// Payload: [Seed:4][TickRate:4][Player:1]
type ConnectAck struct {
	Seed     uint32
	TickRate uint32
	Player   uint8 // slot assigned to the joiner
}

func (ConnectAck) Type() MessageType { return MsgConnectAck }

func (m ConnectAck) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.Seed)
	b = binary.BigEndian.AppendUint32(b, m.TickRate)
	return append(b, m.Player)
}

func decodeConnectAck(r *reader) ConnectAck {
	return ConnectAck{Seed: r.u32(), TickRate: r.u32(), Player: r.u8()}
}

// Commands carries one player's complete input for a tick. An empty
// Commands slice is the explicit "no input" marker.
// Payload: [Tick:4][Player:1][Count:2] then Count encoded commands.
type Commands struct {
	Tick     uint32
	Player   uint8
	Commands []sim.Command
}

func (Commands) Type() MessageType { return MsgCommands }

func (m Commands) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.Tick)
	b = append(b, m.Player)
	b = binary.BigEndian.AppendUint16(b, uint16(len(m.Commands)))
	for _, c := range m.Commands {
		b = AppendCommand(b, c)
	}
	return b
}

func decodeCommands(r *reader) Commands {
	m := Commands{Tick: r.u32(), Player: r.u8()}
	n := int(r.u16())
	for i := 0; i < n && r.err == nil; i++ {
		m.Commands = append(m.Commands, readCommand(r))
	}
	return m
}

// AppendCommand appends the fixed binary layout of one command:
// [Type:1][Player:1][Tick:4][IDCount:2][IDs:4*n][TargetX:4][TargetY:4][Target:4]
func AppendCommand(b []byte, c sim.Command) []byte {
	b = append(b, uint8(c.Type), uint8(c.Player))
	b = binary.BigEndian.AppendUint32(b, c.Tick)
	b = binary.BigEndian.AppendUint16(b, uint16(len(c.Entities)))
	for _, id := range c.Entities {
		b = binary.BigEndian.AppendUint32(b, uint32(id))
	}
	b = binary.BigEndian.AppendUint32(b, uint32(c.TargetX))
	b = binary.BigEndian.AppendUint32(b, uint32(c.TargetY))
	return binary.BigEndian.AppendUint32(b, uint32(c.Target))
}

// DecodeCommand parses one command and returns the bytes consumed.
func DecodeCommand(b []byte) (sim.Command, int, error) {
	r := &reader{buf: b}
	c := readCommand(r)
	if r.err != nil {
		return sim.Command{}, 0, r.err
	}
	return c, r.off, nil
}

func readCommand(r *reader) sim.Command {
	c := sim.Command{
		Type:   sim.CommandType(r.u8()),
		Player: sim.PlayerID(r.u8()),
		Tick:   r.u32(),
	}
	n := int(r.u16())
	if n > 0 {
		c.Entities = make([]sim.EntityID, 0, min(n, 1024))
	}
	for i := 0; i < n && r.err == nil; i++ {
		c.Entities = append(c.Entities, sim.EntityID(r.u32()))
	}
	c.TargetX = r.i32()
	c.TargetY = r.i32()
	c.Target = sim.EntityID(r.u32())
	return c
}

// TickAck tells the peer the highest tick up to which its commands have
// all arrived. Payload: [Tick:4]
type TickAck struct {
	Tick uint32
}

func (TickAck) Type() MessageType { return MsgTickAck }

func (m TickAck) appendTo(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, m.Tick)
}

// HashCheck carries a state digest. Payload: [Tick:4][Digest:32]
type HashCheck struct {
	Tick   uint32
	Digest sim.Digest
}

func (HashCheck) Type() MessageType { return MsgHashCheck }

func (m HashCheck) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.Tick)
	return append(b, m.Digest[:]...)
}

func decodeHashCheck(r *reader) HashCheck {
	m := HashCheck{Tick: r.u32()}
	copy(m.Digest[:], r.take(len(m.Digest)))
	return m
}

// Desync reports a digest mismatch together with the sender's compressed
// state dump. Payload: [Tick:4][Digest:32][DumpLen:4][Dump]
type Desync struct {
	Tick   uint32
	Digest sim.Digest
	Dump   []byte // zstd, see CompressDump
}

func (Desync) Type() MessageType { return MsgDesync }

func (m Desync) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.Tick)
	b = append(b, m.Digest[:]...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(m.Dump)))
	return append(b, m.Dump...)
}

func decodeDesync(r *reader) Desync {
	m := Desync{Tick: r.u32()}
	copy(m.Digest[:], r.take(len(m.Digest)))
	n := r.u32()
	if n > MaxPayload {
		r.err = ErrShortFrame
		return m
	}
	if dump := r.take(int(n)); len(dump) > 0 {
		m.Dump = append([]byte(nil), dump...)
	}
	return m
}

// Reason explains a DISCONNECT.
type Reason uint8

const (
	ReasonQuit Reason = iota
	ReasonTimeout
	ReasonDesync
	ReasonRulesMismatch
	ReasonGameOver
)

func (r Reason) String() string {
	switch r {
	case ReasonQuit:
		return "quit"
	case ReasonTimeout:
		return "timeout"
	case ReasonDesync:
		return "desync"
	case ReasonRulesMismatch:
		return "rules-mismatch"
	case ReasonGameOver:
		return "game-over"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Disconnect ends the match for both peers. Payload: [Reason:1]
type Disconnect struct {
	Reason Reason
}

func (Disconnect) Type() MessageType { return MsgDisconnect }

func (m Disconnect) appendTo(b []byte) []byte {
	return append(b, uint8(m.Reason))
}

// Ack acknowledges a reliable frame. Payload: [Seq:4]
type Ack struct {
	Seq uint32
}

func (Ack) Type() MessageType { return MsgAck }

func (m Ack) appendTo(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, m.Seq)
}
