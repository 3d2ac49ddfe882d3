// Package replay records the merged per-tick command stream of a match into
// a zstd-compressed log and re-runs it against a fresh simulation.
package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/vovakirdan/antcraft/internal/protocol"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Format is the current replay format version.
const Format = 1

var magic = [4]byte{'A', 'C', 'R', 'P'}

var (
	// ErrBadMagic means the stream is not a replay.
	ErrBadMagic = errors.New("replay: not a replay file")
	// ErrMismatch means a recorded checkpoint disagrees with the re-simulation.
	ErrMismatch = errors.New("replay: checkpoint mismatch")
)

const (
	frameTick       = 1
	frameCheckpoint = 2
)

// Header describes the match a replay belongs to.
type Header struct {
	Format      int                 `json:"format"`
	MatchID     string              `json:"match_id"`
	Seed        uint32              `json:"seed"`
	Fingerprint uint32              `json:"fingerprint"`
	Rules       sim.Rules           `json:"rules"`
	Players     [sim.Players]string `json:"players"`
	Started     time.Time           `json:"started"`
}

// Frame is one record of the log: either the executed commands of a tick
// or a digest checkpoint.
type Frame struct {
	Tick       uint32
	Commands   []sim.Command
	Checkpoint bool
	Digest     sim.Digest
}

// Recorder appends frames to a replay stream.
type Recorder struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	buf []byte
}

// Create opens path for writing and records hdr.
func Create(path string, hdr Header) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("replay: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot create file: %w", err)
	}
	r, err := NewRecorder(f, hdr)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.f = f
	return r, nil
}

// NewRecorder writes hdr to w and returns a recorder for the frames.
func NewRecorder(w io.Writer, hdr Header) (*Recorder, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("replay: cannot start compressor: %w", err)
	}
	r := &Recorder{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}

	hdr.Format = Format
	meta, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot encode header: %w", err)
	}
	b := append([]byte(nil), magic[:]...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(meta)))
	b = append(b, meta...)
	if _, err := r.w.Write(b); err != nil {
		return nil, fmt.Errorf("replay: cannot write header: %w", err)
	}
	return r, nil
}

// Record appends the merged commands executed at tick.
func (r *Recorder) Record(tick uint32, cmds []sim.Command) error {
	b := append(r.buf[:0], frameTick)
	b = binary.BigEndian.AppendUint32(b, tick)
	b = binary.BigEndian.AppendUint16(b, uint16(len(cmds)))
	for _, c := range cmds {
		b = protocol.AppendCommand(b, c)
	}
	r.buf = b
	_, err := r.w.Write(b)
	return err
}

// Checkpoint appends the digest of the state after tick-1 executed.
func (r *Recorder) Checkpoint(tick uint32, d sim.Digest) error {
	b := append(r.buf[:0], frameCheckpoint)
	b = binary.BigEndian.AppendUint32(b, tick)
	b = append(b, d[:]...)
	r.buf = b
	_, err := r.w.Write(b)
	return err
}

// Close flushes the stream and closes the file opened by Create.
func (r *Recorder) Close() error {
	err := r.w.Flush()
	if cerr := r.enc.Close(); err == nil {
		err = cerr
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader iterates the frames of a replay.
type Reader struct {
	f   *os.File
	dec *zstd.Decoder
	r   *bufio.Reader
	hdr Header
}

// OpenFile opens the replay at path.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot open file: %w", err)
	}
	r, err := Open(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.f = f
	return r, nil
}

// Open reads the header from src.
func Open(src io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot start decompressor: %w", err)
	}
	r := &Reader{dec: dec, r: bufio.NewReader(dec)}

	var prefix [8]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if [4]byte(prefix[:4]) != magic {
		dec.Close()
		return nil, ErrBadMagic
	}
	meta := make([]byte, binary.BigEndian.Uint32(prefix[4:]))
	if _, err := io.ReadFull(r.r, meta); err != nil {
		dec.Close()
		return nil, fmt.Errorf("replay: cannot read header: %w", err)
	}
	if err := json.Unmarshal(meta, &r.hdr); err != nil {
		dec.Close()
		return nil, fmt.Errorf("replay: cannot decode header: %w", err)
	}
	if r.hdr.Format != Format {
		dec.Close()
		return nil, fmt.Errorf("replay: unsupported format %d", r.hdr.Format)
	}
	return r, nil
}

// Header returns the match description.
func (r *Reader) Header() Header { return r.hdr }

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	kind, err := r.r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	var tick [4]byte
	if _, err := io.ReadFull(r.r, tick[:]); err != nil {
		return Frame{}, truncated(err)
	}
	f := Frame{Tick: binary.BigEndian.Uint32(tick[:])}

	switch kind {
	case frameTick:
		var n [2]byte
		if _, err := io.ReadFull(r.r, n[:]); err != nil {
			return Frame{}, truncated(err)
		}
		count := int(binary.BigEndian.Uint16(n[:]))
		f.Commands = make([]sim.Command, 0, count)
		for range count {
			c, err := r.readCommand()
			if err != nil {
				return Frame{}, err
			}
			f.Commands = append(f.Commands, c)
		}
	case frameCheckpoint:
		f.Checkpoint = true
		if _, err := io.ReadFull(r.r, f.Digest[:]); err != nil {
			return Frame{}, truncated(err)
		}
	default:
		return Frame{}, fmt.Errorf("replay: unknown frame kind %d", kind)
	}
	return f, nil
}

// readCommand reads one command in the wire layout: a fixed prefix holding
// the id count, the ids, then a fixed suffix.
func (r *Reader) readCommand() (sim.Command, error) {
	const prefix = 1 + 1 + 4 + 2
	const suffix = 4 + 4 + 4
	head, err := r.r.Peek(prefix)
	if err != nil {
		return sim.Command{}, truncated(err)
	}
	size := prefix + int(binary.BigEndian.Uint16(head[6:8]))*4 + suffix
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return sim.Command{}, truncated(err)
	}
	c, _, err := protocol.DecodeCommand(buf)
	if err != nil {
		return sim.Command{}, fmt.Errorf("replay: bad command: %w", err)
	}
	return c, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("replay: truncated frame: %w", err)
}

// Close releases the decoder and the file opened by OpenFile.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}
