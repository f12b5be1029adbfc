// Package record defines the fixed-layout binary encoding for Product and
// Order rows (spec.md §3/§4.1). Records are packed field-by-field in native
// endianness with no struct-alignment padding; fixed-width strings are
// NUL-padded and always read back at exactly their declared width.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Field widths, in bytes, for the fixed-width ASCII string fields.
const (
	colorWidth         = 10
	metalWidth         = 10
	gemWidth           = 25
	timestampWidth     = 30
	categoryAliasWidth = 30
)

// TombstoneByte marks an Order as logically deleted when it occupies
// Timestamp[0]. '*' == 0x2A, per spec.md §3.
const TombstoneByte = '*'

// Product is the fixed-size record for a single jewelry product, keyed by
// ProductID.
type Product struct {
	ProductID  int64
	CategoryID int64
	BrandID    int32
	PriceUSD   float32
	Gender     byte
	Color      [colorWidth]byte
	Metal      [metalWidth]byte
	Gem        [gemWidth]byte
}

// ProductSize is the on-disk size, in bytes, of an encoded Product.
const ProductSize = 8 + 8 + 4 + 4 + 1 + colorWidth + metalWidth + gemWidth

// Order is the fixed-size record for a single purchase order, keyed by
// OrderID. The product-descriptive fields are denormalized from the
// originating Product row so the order history can be scanned without a
// join back to the product table.
type Order struct {
	Timestamp     [timestampWidth]byte
	OrderID       int64
	ProductID     int64
	Quantity      int32
	CategoryID    int64
	CategoryAlias [categoryAliasWidth]byte
	BrandID       int32
	PriceUSD      float32
	UserID        int64
	Gender        byte
	Color         [colorWidth]byte
	Metal         [metalWidth]byte
	Gem           [gemWidth]byte
}

// OrderSize is the on-disk size, in bytes, of an encoded Order.
const OrderSize = timestampWidth + 8 + 8 + 4 + 8 + categoryAliasWidth + 4 + 4 + 8 + 1 + colorWidth + metalWidth + gemWidth

// OrderIDOffset is the byte offset of OrderID within an encoded Order,
// used by internal/sparseindex to extract the sort key directly from a
// record buffer without a full decode.
const OrderIDOffset = timestampWidth

// PadString truncates or right-pads s with NUL bytes to exactly width
// bytes, returning a new slice of length width.
func PadString(s string, width int) []byte {
	out := make([]byte, width)
	copy(out, s)
	return out
}

// TrimString strips trailing NUL bytes from a fixed-width field.
func TrimString(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

// Encode serializes p into its fixed ProductSize-byte representation.
func (p Product) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, ProductSize))

	fields := []any{p.ProductID, p.CategoryID, p.BrandID, p.PriceUSD, p.Gender, p.Color, p.Metal, p.Gem}
	for _, f := range fields {
		if err := binary.Write(buf, binary.NativeEndian, f); err != nil {
			return nil, fmt.Errorf("encode product: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeProduct parses a ProductSize-byte buffer into a Product.
func DecodeProduct(b []byte) (Product, error) {
	if len(b) != ProductSize {
		return Product{}, fmt.Errorf("decode product: expected %d bytes, got %d", ProductSize, len(b))
	}

	var p Product
	r := bytes.NewReader(b)
	fields := []any{&p.ProductID, &p.CategoryID, &p.BrandID, &p.PriceUSD, &p.Gender, &p.Color, &p.Metal, &p.Gem}
	for _, f := range fields {
		if err := binary.Read(r, binary.NativeEndian, f); err != nil {
			return Product{}, fmt.Errorf("decode product: %w", err)
		}
	}

	return p, nil
}

// Encode serializes o into its fixed OrderSize-byte representation.
func (o Order) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, OrderSize))

	fields := []any{
		o.Timestamp, o.OrderID, o.ProductID, o.Quantity, o.CategoryID, o.CategoryAlias,
		o.BrandID, o.PriceUSD, o.UserID, o.Gender, o.Color, o.Metal, o.Gem,
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.NativeEndian, f); err != nil {
			return nil, fmt.Errorf("encode order: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeOrder parses an OrderSize-byte buffer into an Order.
func DecodeOrder(b []byte) (Order, error) {
	if len(b) != OrderSize {
		return Order{}, fmt.Errorf("decode order: expected %d bytes, got %d", OrderSize, len(b))
	}

	var o Order
	r := bytes.NewReader(b)
	fields := []any{
		&o.Timestamp, &o.OrderID, &o.ProductID, &o.Quantity, &o.CategoryID, &o.CategoryAlias,
		&o.BrandID, &o.PriceUSD, &o.UserID, &o.Gender, &o.Color, &o.Metal, &o.Gem,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.NativeEndian, f); err != nil {
			return Order{}, fmt.Errorf("decode order: %w", err)
		}
	}

	return o, nil
}

// IsTombstone reports whether this order has been logically deleted.
// This, and Tombstone, are the only sanctioned ways to read or write the
// tombstone convention — per spec.md §9's design note, no other code should
// write Timestamp[0] directly.
func (o Order) IsTombstone() bool {
	return o.Timestamp[0] == TombstoneByte
}

// Tombstone returns a copy of the order marked as logically deleted: the
// copy's Timestamp[0] is overwritten with TombstoneByte. The receiver itself
// is not modified.
func (o Order) Tombstone() Order {
	o.Timestamp[0] = TombstoneByte
	return o
}
