package huffman

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	jerrors "github.com/dataforge/jewelbase/pkg/errors"
)

// frameHeaderSize is the fixed portion of a marshaled frame: the u64
// original length, the 256-entry i32 frequency table, and the u64
// checksum. The variable-length bit payload follows.
const frameHeaderSize = 8 + alphabetSize*4 + 8

// Frame is the canonical on-disk/in-memory representation of one
// Huffman-compressed block (spec.md §4.6): the original byte length, the
// frequency table the tree was rebuilt from, a checksum over that table,
// and the packed bit payload.
//
// The checksum is a domain-stack addition beyond the original source: it
// guards against a corrupted frequency header silently decoding into
// garbage rather than failing loudly. It is computed with xxhash, not the
// Knuth multiplicative hash that internal/hashindex uses for bucket
// placement — the two serve unrelated purposes.
type Frame struct {
	OriginalLen uint64
	Freq        [alphabetSize]int32
	Checksum    uint64
	Payload     []byte
}

// checksumFreq hashes the frequency table's big-endian byte representation
// with xxhash64.
func checksumFreq(freq [alphabetSize]int32) uint64 {
	var buf [alphabetSize * 4]byte
	for i, f := range freq {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(f))
	}
	return xxhash.Sum64(buf[:])
}

// Marshal serializes a Frame to its wire form: u64 original length, 256 x
// i32 frequency table, u64 checksum, then the raw bit payload.
func (f Frame) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(frameHeaderSize + len(f.Payload))

	if err := binary.Write(buf, binary.NativeEndian, f.OriginalLen); err != nil {
		return nil, jerrors.NewMalformedFrameError("frame_marshal", "", err)
	}
	if err := binary.Write(buf, binary.NativeEndian, f.Freq); err != nil {
		return nil, jerrors.NewMalformedFrameError("frame_marshal", "", err)
	}
	if err := binary.Write(buf, binary.NativeEndian, f.Checksum); err != nil {
		return nil, jerrors.NewMalformedFrameError("frame_marshal", "", err)
	}
	buf.Write(f.Payload)

	return buf.Bytes(), nil
}

// UnmarshalFrame parses a Frame from its wire form produced by Marshal.
func UnmarshalFrame(data []byte) (Frame, error) {
	if len(data) < frameHeaderSize {
		return Frame{}, jerrors.NewMalformedFrameError("frame_unmarshal", "", nil).
			WithDetail("min_size", frameHeaderSize).WithDetail("got", len(data))
	}

	r := bytes.NewReader(data)
	var f Frame

	if err := binary.Read(r, binary.NativeEndian, &f.OriginalLen); err != nil {
		return Frame{}, jerrors.NewMalformedFrameError("frame_unmarshal", "", err)
	}
	if err := binary.Read(r, binary.NativeEndian, &f.Freq); err != nil {
		return Frame{}, jerrors.NewMalformedFrameError("frame_unmarshal", "", err)
	}
	if err := binary.Read(r, binary.NativeEndian, &f.Checksum); err != nil {
		return Frame{}, jerrors.NewMalformedFrameError("frame_unmarshal", "", err)
	}

	f.Payload = make([]byte, r.Len())
	if _, err := r.Read(f.Payload); err != nil {
		return Frame{}, jerrors.NewMalformedFrameError("frame_unmarshal", "", err)
	}

	return f, nil
}
