package protocol

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	dumpEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	dumpDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
)

// CompressDump zstd-compresses a diagnostic dump.
func CompressDump(dump []byte) []byte {
	return dumpEncoder.EncodeAll(dump, nil)
}

// DecompressDump reverses CompressDump.
func DecompressDump(data []byte) ([]byte, error) {
	out, err := dumpDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: cannot decompress dump: %w", err)
	}
	return out, nil
}

// NewDesync builds a DESYNC message, dropping the dump when it would not
// fit a single datagram.
func NewDesync(tick uint32, digest sim.Digest, dump []byte) Desync {
	m := Desync{Tick: tick, Digest: digest}
	if len(dump) == 0 {
		return m
	}
	c := CompressDump(dump)
	if len(c) <= MaxPayload-4-32-4 {
		m.Dump = c
	}
	return m
}
