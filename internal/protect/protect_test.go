package protect

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "UNCOPYRIGHTABLE"

// TestS6ProtectRoundTrip mirrors spec.md's S6 scenario: protect a random
// file, restore it, and confirm the integrity verifier reports identical
// with no leftover huffman temp file.
func TestS6ProtectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "input.bin")
	secPath := filepath.Join(dir, "input.sec")
	restoredPath := filepath.Join(dir, "restored.bin")

	data := make([]byte, 10*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(srcPath, data, 0o644))

	require.NoError(t, Protect(srcPath, secPath, testKey))
	require.NoError(t, Restore(secPath, restoredPath, testKey))

	result, err := Verify(srcPath, restoredPath)
	require.NoError(t, err)
	require.True(t, result.Identical)
	require.Equal(t, int64(-1), result.FirstMismatch)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp.huff")
		require.NotContains(t, e.Name(), ".tmp.desc")
	}
}

func TestVerifyReportsFirstMismatch(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bin")
	pathB := filepath.Join(dir, "b.bin")

	a := []byte("the quick brown fox")
	b := []byte("the quick br0wn fox")
	require.NoError(t, os.WriteFile(pathA, a, 0o644))
	require.NoError(t, os.WriteFile(pathB, b, 0o644))

	result, err := Verify(pathA, pathB)
	require.NoError(t, err)
	require.False(t, result.Identical)
	require.Equal(t, int64(12), result.FirstMismatch)
}

func TestVerifyDifferentSizes(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bin")
	pathB := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(pathA, []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("a much longer string"), 0o644))

	result, err := Verify(pathA, pathB)
	require.NoError(t, err)
	require.False(t, result.Identical)
}

func TestProtectSingleByteInput(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "one.bin")
	secPath := filepath.Join(dir, "one.sec")
	restoredPath := filepath.Join(dir, "one.out")

	require.NoError(t, os.WriteFile(srcPath, []byte{0x42}, 0o644))
	require.NoError(t, Protect(srcPath, secPath, testKey))
	require.NoError(t, Restore(secPath, restoredPath, testKey))

	out, err := os.ReadFile(restoredPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x42}, out)
}
