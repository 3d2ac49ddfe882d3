// Package protocol defines the AntCraft wire format: a fixed frame header
// followed by one of the lockstep messages. Every integer is big-endian.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version is the wire protocol version carried in CONNECT.
const Version = 1

// MessageType identifies the payload of a frame.
type MessageType uint8

const (
	MsgConnect    MessageType = 0x01
	MsgConnectAck MessageType = 0x02
	MsgCommands   MessageType = 0x03
	MsgTickAck    MessageType = 0x04
	MsgHashCheck  MessageType = 0x05
	MsgDesync     MessageType = 0x06
	MsgDisconnect MessageType = 0x07
	MsgAck        MessageType = 0x08
)

func (t MessageType) String() string {
	switch t {
	case MsgConnect:
		return "CONNECT"
	case MsgConnectAck:
		return "CONNECT_ACK"
	case MsgCommands:
		return "COMMANDS"
	case MsgTickAck:
		return "TICK_ACK"
	case MsgHashCheck:
		return "HASH_CHECK"
	case MsgDesync:
		return "DESYNC"
	case MsgDisconnect:
		return "DISCONNECT"
	case MsgAck:
		return "ACK"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// Reliable reports whether messages of this type travel on the
// acknowledged channel. COMMANDS and TICK_ACK rely on redundancy instead,
// and ACK itself is never acknowledged.
func (t MessageType) Reliable() bool {
	switch t {
	case MsgConnect, MsgConnectAck, MsgHashCheck, MsgDesync, MsgDisconnect:
		return true
	}
	return false
}

// Header precedes every payload.
// Fixed 8 bytes: [Type:1][Flags:1][Seq:4][Len:2]
const HeaderSize = 8

// Header flags.
const (
	FlagNone     uint8 = 0x00
	FlagReliable uint8 = 0x01 // receiver must answer with ACK
)

// MaxDatagram is the largest frame that fits one UDP datagram.
const MaxDatagram = 65507

// MaxPayload is the largest payload a frame can carry.
const MaxPayload = MaxDatagram - HeaderSize

var (
	// ErrShortFrame means a frame or payload ended before its declared fields.
	ErrShortFrame = errors.New("protocol: short frame")
	// ErrUnknownType means the header names no known message.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrTooLarge means a payload does not fit a datagram.
	ErrTooLarge = errors.New("protocol: payload too large")
)

// Header is the decoded frame header.
type Header struct {
	Type  MessageType
	Flags uint8
	Seq   uint32
	Len   uint16
}

// Message is implemented by every payload type.
type Message interface {
	Type() MessageType
	appendTo(b []byte) []byte
}

// Encode frames msg with the given sequence number. Reliable message types
// get FlagReliable.
func Encode(seq uint32, msg Message) ([]byte, error) {
	buf := make([]byte, HeaderSize, HeaderSize+64)
	buf = msg.appendTo(buf)
	payloadLen := len(buf) - HeaderSize
	if payloadLen > MaxPayload {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, msg.Type(), payloadLen)
	}
	flags := FlagNone
	if msg.Type().Reliable() {
		flags |= FlagReliable
	}
	buf[0] = byte(msg.Type())
	buf[1] = flags
	binary.BigEndian.PutUint32(buf[2:6], seq)
	binary.BigEndian.PutUint16(buf[6:8], uint16(payloadLen))
	return buf, nil
}

// DecodeHeader parses the header of a frame.
func DecodeHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, ErrShortFrame
	}
	h := Header{
		Type:  MessageType(frame[0]),
		Flags: frame[1],
		Seq:   binary.BigEndian.Uint32(frame[2:6]),
		Len:   binary.BigEndian.Uint16(frame[6:8]),
	}
	if len(frame)-HeaderSize < int(h.Len) {
		return h, ErrShortFrame
	}
	return h, nil
}

// Decode parses a complete frame.
func Decode(frame []byte) (Header, Message, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return h, nil, err
	}
	r := &reader{buf: frame[HeaderSize : HeaderSize+int(h.Len)]}

	var msg Message
	switch h.Type {
	case MsgConnect:
		msg = decodeConnect(r)
	case MsgConnectAck:
		msg = decodeConnectAck(r)
	case MsgCommands:
		msg = decodeCommands(r)
	case MsgTickAck:
		msg = TickAck{Tick: r.u32()}
	case MsgHashCheck:
		msg = decodeHashCheck(r)
	case MsgDesync:
		msg = decodeDesync(r)
	case MsgDisconnect:
		msg = Disconnect{Reason: Reason(r.u8())}
	case MsgAck:
		msg = Ack{Seq: r.u32()}
	default:
		return h, nil, fmt.Errorf("%w: %s", ErrUnknownType, h.Type)
	}
	if r.err != nil {
		return h, nil, fmt.Errorf("%s: %w", h.Type, r.err)
	}
	return h, msg, nil
}

// reader consumes big-endian fields and remembers the first underflow.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrShortFrame
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) i32() int32 { return int32(r.u32()) }
