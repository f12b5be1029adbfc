package huffman

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeRejectsEmptyInput(t *testing.T) {
	_, err := Encode(nil)
	require.Error(t, err)
}

func TestDecodeRejectsZeroLenFrame(t *testing.T) {
	_, err := Decode(Frame{})
	require.Error(t, err)
}

func TestRoundTripTypical(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again")

	f, err := Encode(data)
	require.NoError(t, err)

	got, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSingleSymbolInput(t *testing.T) {
	data := []byte("aaaaaaaaaa")

	f, err := Encode(data)
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), f.OriginalLen)

	got, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

// TestS4Banana mirrors spec.md's S4 scenario: encoding "banana" produces a
// frame whose header is 8 (original length) + 1024 (256 x i32 freq table)
// bytes, plus an 8-byte checksum and the packed payload.
func TestS4Banana(t *testing.T) {
	data := []byte("banana")

	f, err := Encode(data)
	require.NoError(t, err)
	require.Equal(t, uint64(6), f.OriginalLen)
	require.Equal(t, int32(1), f.Freq['b'])
	require.Equal(t, int32(3), f.Freq['a'])
	require.Equal(t, int32(2), f.Freq['n'])

	marshaled, err := f.Marshal()
	require.NoError(t, err)
	require.Equal(t, frameHeaderSize+len(f.Payload), len(marshaled))
	require.Equal(t, 8+1024+8, frameHeaderSize)

	got, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestFrameMarshalRoundTrip(t *testing.T) {
	data := []byte("mississippi river")

	f, err := Encode(data)
	require.NoError(t, err)

	marshaled, err := f.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalFrame(marshaled)
	require.NoError(t, err)
	require.Equal(t, f.OriginalLen, parsed.OriginalLen)
	require.Equal(t, f.Freq, parsed.Freq)
	require.Equal(t, f.Checksum, parsed.Checksum)
	require.Equal(t, f.Payload, parsed.Payload)

	got, err := Decode(parsed)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestDecodeDetectsCorruptedChecksum(t *testing.T) {
	f, err := Encode([]byte("corruption test"))
	require.NoError(t, err)

	f.Freq['z']++ // corrupt the frequency table without updating the checksum

	_, err = Decode(f)
	require.Error(t, err)
}

func TestEveryByteValueCompresses(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	f, err := Encode(data)
	require.NoError(t, err)

	got, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
