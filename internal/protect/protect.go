// Package protect implements the at-rest protection pipeline of spec.md
// §4.8: Protect composes Huffman compression (internal/huffman) with
// columnar-transposition encryption (internal/transpose); Restore inverts
// the composition. An integrity verifier compares two files byte-for-byte
// and reports the first differing offset, per spec.md §4.8's acceptance
// test: Restore(Protect(x)) == x bit-for-bit for any x with length >= 1.
//
// Protect writes its huffman intermediate to a temporary path and always
// removes it, success or failure, matching spec.md's exact cleanup policy.
// The final .sec output is published with natefinch/atomic.WriteFile so a
// failure partway through the transposition stage never leaves a
// half-written .sec file for a caller to mistake for a complete one.
package protect

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/natefinch/atomic"

	jerrors "github.com/dataforge/jewelbase/pkg/errors"
	"github.com/dataforge/jewelbase/internal/huffman"
	"github.com/dataforge/jewelbase/internal/transpose"
)

// Compress reads src, Huffman-encodes it, and writes the marshaled frame to
// dst (a plain, non-atomic write — this is the .huff / intermediate form,
// not the final protected artifact).
func Compress(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, srcPath, srcPath)
	}

	frame, err := huffman.Encode(data)
	if err != nil {
		return err
	}

	marshaled, err := frame.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, marshaled, 0o644); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write huffman frame").WithPath(dstPath)
	}
	return nil
}

// Decompress reads a Huffman frame from srcPath and writes the decoded
// bytes to dstPath.
func Decompress(srcPath, dstPath string) error {
	marshaled, err := os.ReadFile(srcPath)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, srcPath, srcPath)
	}

	frame, err := huffman.UnmarshalFrame(marshaled)
	if err != nil {
		return err
	}

	data, err := huffman.Decode(frame)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write decompressed output").WithPath(dstPath)
	}
	return nil
}

// Encrypt reads src, transposition-encrypts it under key, and writes the
// frame to dst.
func Encrypt(srcPath, dstPath, key string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, srcPath, srcPath)
	}

	frame, err := transpose.Encrypt(data, key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, frame, 0o644); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write transposition frame").WithPath(dstPath)
	}
	return nil
}

// Decrypt reads a transposition frame from srcPath and writes the decrypted
// bytes to dstPath.
func Decrypt(srcPath, dstPath, key string) error {
	frame, err := os.ReadFile(srcPath)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, srcPath, srcPath)
	}

	data, err := transpose.Decrypt(frame, key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write decrypted output").WithPath(dstPath)
	}
	return nil
}

// Protect composes Huffman compression and transposition encryption:
// srcPath -> (huffman) -> tmp -> (transpose) -> dstPath. The huffman
// intermediate is always removed, on both success and failure; dstPath is
// published atomically so a failed transposition stage never leaves a
// partial .sec file behind.
func Protect(srcPath, dstPath, key string) (err error) {
	tmp := dstPath + ".tmp.huff"
	defer func() {
		_ = os.Remove(tmp)
	}()

	if err := Compress(srcPath, tmp); err != nil {
		return err
	}

	compressed, err := os.ReadFile(tmp)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, tmp, tmp)
	}

	frame, err := transpose.Encrypt(compressed, key)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(dstPath, bytes.NewReader(frame)); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to publish protected output").WithPath(dstPath)
	}
	return nil
}

// Restore inverts Protect: srcPath -> (transpose decrypt) -> (huffman
// decode) -> dstPath.
func Restore(srcPath, dstPath, key string) error {
	frame, err := os.ReadFile(srcPath)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, srcPath, srcPath)
	}

	compressed, err := transpose.Decrypt(frame, key)
	if err != nil {
		return err
	}

	huffFrame, err := huffman.UnmarshalFrame(compressed)
	if err != nil {
		return err
	}

	data, err := huffman.Decode(huffFrame)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(dstPath, bytes.NewReader(data)); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to publish restored output").WithPath(dstPath)
	}
	return nil
}

// VerifyResult reports the outcome of comparing two files byte-for-byte.
type VerifyResult struct {
	Identical     bool
	FirstMismatch int64 // -1 if Identical, or if the files differ only in length
	SizeA, SizeB  int64
}

// Verify compares pathA and pathB: it first checks sizes, then — if equal —
// streams both files and reports the first differing byte offset, per
// spec.md §4.8's integrity verifier.
func Verify(pathA, pathB string) (VerifyResult, error) {
	fa, err := os.Open(pathA)
	if err != nil {
		return VerifyResult{}, jerrors.ClassifyFileOpenError(err, pathA, pathA)
	}
	defer fa.Close()

	fb, err := os.Open(pathB)
	if err != nil {
		return VerifyResult{}, jerrors.ClassifyFileOpenError(err, pathB, pathB)
	}
	defer fb.Close()

	statA, err := fa.Stat()
	if err != nil {
		return VerifyResult{}, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to stat file").WithPath(pathA)
	}
	statB, err := fb.Stat()
	if err != nil {
		return VerifyResult{}, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to stat file").WithPath(pathB)
	}

	res := VerifyResult{SizeA: statA.Size(), SizeB: statB.Size(), FirstMismatch: -1}
	if res.SizeA != res.SizeB {
		res.Identical = false
		return res, nil
	}

	const chunkSize = 64 * 1024
	ra, rb := bufio.NewReaderSize(fa, chunkSize), bufio.NewReaderSize(fb, chunkSize)
	bufA, bufB := make([]byte, chunkSize), make([]byte, chunkSize)

	var offset int64
	for {
		na, errA := ra.Read(bufA)
		nb, errB := rb.Read(bufB)
		if na != nb {
			// Sizes matched via Stat, so this should not happen for regular
			// files; treat as a mismatch at the current offset rather than
			// failing the verify outright.
			res.FirstMismatch = offset + int64(min(na, nb))
			return res, nil
		}

		if idx := diffAt(bufA[:na], bufB[:nb]); idx >= 0 {
			res.FirstMismatch = offset + int64(idx)
			return res, nil
		}

		offset += int64(na)
		if errA == io.EOF || errB == io.EOF {
			break
		}
		if errA != nil {
			return VerifyResult{}, jerrors.NewStorageError(errA, jerrors.ErrorCodeIO, "short read during verify").WithPath(pathA)
		}
		if errB != nil {
			return VerifyResult{}, jerrors.NewStorageError(errB, jerrors.ErrorCodeIO, "short read during verify").WithPath(pathB)
		}
	}

	res.Identical = true
	res.FirstMismatch = -1
	return res, nil
}

func diffAt(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}

