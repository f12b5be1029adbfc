// Package transpose implements the keyed columnar-transposition permuter
// of spec.md §4.7. It is a demonstration permutation, not a secure cipher
// (spec.md §2's explicit non-goal), grounded on the original source's
// cifrarTransposicao/decifrarTransposicao column-order derivation.
package transpose

import (
	"bytes"
	"encoding/binary"
	"sort"

	jerrors "github.com/dataforge/jewelbase/pkg/errors"
)

// ColumnOrder derives the permutation π from a transposition key by stably
// sorting the key's character positions by character value ascending:
// π[0] is the position of the smallest character, and ties keep their
// original relative order. Column π[i] is read i-th during encryption.
func ColumnOrder(key string) []int {
	order := make([]int, len(key))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return key[order[a]] < key[order[b]]
	})
	return order
}

// Encrypt views data row-major into a ceil(N/K) x K matrix (the last row
// may be short; out-of-range cells are simply absent, not padded) and
// emits the concatenation of columns in order π. The output frame is a
// u64 original length N followed by the N permuted bytes.
func Encrypt(data []byte, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	k := len(key)
	n := len(data)
	order := ColumnOrder(key)
	rows := (n + k - 1) / k

	out := make([]byte, 0, n)
	for _, col := range order {
		for row := 0; row < rows; row++ {
			idx := row*k + col
			if idx < n {
				out = append(out, data[idx])
			}
		}
	}

	buf := new(bytes.Buffer)
	buf.Grow(8 + len(out))
	if err := binary.Write(buf, binary.BigEndian, uint64(n)); err != nil {
		return nil, jerrors.NewMalformedFrameError("transpose_encrypt", "", err)
	}
	buf.Write(out)
	return buf.Bytes(), nil
}

// Decrypt inverts Encrypt: it reconstructs each column's run of bytes from
// the permuted payload and writes them back into their row-major
// positions, recovering the original sequence.
func Decrypt(frame []byte, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if len(frame) < 8 {
		return nil, jerrors.NewMalformedFrameError("transpose_decrypt", "", nil).
			WithDetail("min_size", 8).WithDetail("got", len(frame))
	}

	n := int(binary.BigEndian.Uint64(frame[:8]))
	payload := frame[8:]
	if len(payload) != n {
		return nil, jerrors.NewMalformedFrameError("transpose_decrypt", "", nil).
			WithDetail("declared_len", n).WithDetail("payload_len", len(payload))
	}

	k := len(key)
	order := ColumnOrder(key)
	rows := (n + k - 1) / k

	out := make([]byte, n)
	pos := 0
	for _, col := range order {
		for row := 0; row < rows; row++ {
			idx := row*k + col
			if idx < n {
				out[idx] = payload[pos]
				pos++
			}
		}
	}
	return out, nil
}

// ValidateKey reports an error if key is empty or contains a repeated
// character — a repeated character makes the stable-sort column order
// ambiguous between the duplicates, and the pipeline non-invertible.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return jerrors.NewInvalidKeyError(key, "key must not be empty")
	}
	seen := make(map[byte]bool, len(key))
	for i := 0; i < len(key); i++ {
		if seen[key[i]] {
			return jerrors.NewInvalidKeyError(key, "key characters must be distinct")
		}
		seen[key[i]] = true
	}
	return nil
}
