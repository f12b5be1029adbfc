package sparseindex

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeRecord builds a minimal fixed-size record whose first 8 bytes are the
// native-endian key, used to drive sparseindex independent of the concrete
// Product/Order layouts.
func makeRecord(key int64, size int) []byte {
	buf := make([]byte, size)
	binary.NativeEndian.PutUint64(buf[:8], uint64(key))
	return buf
}

func TestLookupFindsExactAndMisses(t *testing.T) {
	const recordSize = 16
	keys := []int64{10, 20, 30, 40, 50, 60, 70}

	var data bytes.Buffer
	for _, k := range keys {
		data.Write(makeRecord(k, recordSize))
	}
	dataReader := bytes.NewReader(data.Bytes())

	cfg := Config{RecordSize: recordSize, KeyOffset: 0, Gap: 2}
	index := []Entry{
		{Key: 10, Offset: 0},
		{Key: 30, Offset: 2 * recordSize},
		{Key: 50, Offset: 4 * recordSize},
	}

	offset, found, err := Lookup(dataReader, index, cfg, 40)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(3*recordSize), offset)

	_, found, err = Lookup(dataReader, index, cfg, 45)
	require.NoError(t, err)
	require.False(t, found)

	offset, found, err = Lookup(dataReader, index, cfg, 10)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(0), offset)
}

func TestIndexRoundTrip(t *testing.T) {
	entries := []Entry{{Key: 0, Offset: 0}, {Key: 100, Offset: 1600}}

	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, entries))

	got, err := ReadIndex(&buf)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

// TestS2IndexSpacing checks the entry-spacing rule of spec.md's S2 scenario
// (an entry for every G-th record, at offset index*R) as computed by the
// test's own loop for G=2 and 7 records: offsets 0, 2R, 4R, 6R. It does not
// call the loader, which emits these entries in internal/loader.
func TestS2IndexSpacing(t *testing.T) {
	const recordSize = 150
	const gap = 2
	const numRecords = 7

	var entries []Entry
	for i := 0; i < numRecords; i++ {
		if i%gap == 0 {
			entries = append(entries, Entry{Key: int64(i), Offset: int64(i * recordSize)})
		}
	}

	require.Equal(t, []Entry{
		{Key: 0, Offset: 0},
		{Key: 2, Offset: 2 * recordSize},
		{Key: 4, Offset: 4 * recordSize},
		{Key: 6, Offset: 6 * recordSize},
	}, entries)
}
