package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProductRoundTrip(t *testing.T) {
	p := Product{
		ProductID:  7,
		CategoryID: 3,
		BrandID:    42,
		PriceUSD:   199.99,
		Gender:     'U',
	}
	copy(p.Color[:], PadString("gold", colorWidth))
	copy(p.Metal[:], PadString("silver", metalWidth))
	copy(p.Gem[:], PadString("ruby", gemWidth))

	encoded, err := p.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, ProductSize)

	decoded, err := DecodeProduct(encoded)
	require.NoError(t, err)
	require.Equal(t, p, decoded)
	require.Equal(t, "gold", TrimString(decoded.Color[:]))
}

func TestOrderRoundTripAndTombstone(t *testing.T) {
	o := Order{OrderID: 10, ProductID: 7, Quantity: 2}
	copy(o.Timestamp[:], PadString("2024-01-01T00:00:00Z", timestampWidth))

	require.False(t, o.IsTombstone())

	encoded, err := o.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, OrderSize)

	decoded, err := DecodeOrder(encoded)
	require.NoError(t, err)
	require.Equal(t, o, decoded)

	tombstoned := decoded.Tombstone()
	require.True(t, tombstoned.IsTombstone())
	require.Equal(t, decoded.OrderID, tombstoned.OrderID)

	encodedTombstone, err := tombstoned.Encode()
	require.NoError(t, err)
	require.Equal(t, byte(TombstoneByte), encodedTombstone[0])
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	_, err := DecodeProduct(make([]byte, ProductSize-1))
	require.Error(t, err)

	_, err = DecodeOrder(make([]byte, OrderSize+1))
	require.Error(t, err)
}
