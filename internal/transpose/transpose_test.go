package transpose

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnOrderStableSort(t *testing.T) {
	// key "bad": b=1, a=0, d=2 -> ascending char order is a,b,d -> positions 1,0,2
	require.Equal(t, []int{1, 0, 2}, ColumnOrder("bad"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data string
		key  string
	}{
		{"exact multiple of key length", "abcdefgh", "key1"},
		{"short final row", "hello world", "cipher"},
		{"single byte", "x", "zyx"},
		{"empty payload", "", "key"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := Encrypt([]byte(tc.data), tc.key)
			require.NoError(t, err)

			out, err := Decrypt(frame, tc.key)
			require.NoError(t, err)
			require.Equal(t, tc.data, string(out))
		})
	}
}

func TestEncryptRejectsInvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("data"), "")
	require.Error(t, err)

	_, err = Encrypt([]byte("data"), "aab")
	require.Error(t, err)
}

func TestDecryptRejectsTruncatedFrame(t *testing.T) {
	_, err := Decrypt([]byte{0, 0, 0}, "key")
	require.Error(t, err)
}

func TestDecryptRejectsLengthMismatch(t *testing.T) {
	frame, err := Encrypt([]byte("hello"), "key")
	require.NoError(t, err)

	frame = append(frame, 0xFF)
	_, err = Decrypt(frame, "key")
	require.Error(t, err)
}

func TestValidateKey(t *testing.T) {
	require.NoError(t, ValidateKey("abcd"))
	require.Error(t, ValidateKey(""))
	require.Error(t, ValidateKey("aa"))
}
