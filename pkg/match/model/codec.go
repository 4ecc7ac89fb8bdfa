package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Binary codec shared by log entries and snapshots. All integers are
// big-endian; strings and decimals are length-prefixed UTF-8 (decimals
// in their canonical trailing-zero-trimmed form). The layout is fixed:
// readers of a given version must see exactly the bytes writers of that
// version produced.

var ErrTruncated = errors.New("codec: truncated input")

// Writer accumulates a frame.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

func (w *Writer) Str(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) Dec(d decimal.Decimal) {
	w.Str(d.String())
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes a frame with a sticky error: after the first failure
// every accessor returns the zero value and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Err() error {
	return r.err
}

// Remaining reports the number of unconsumed bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

func (r *Reader) Str() string {
	n := r.U32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *Reader) Dec() decimal.Decimal {
	s := r.Str()
	if r.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		r.err = fmt.Errorf("codec: bad decimal %q: %w", s, err)
		return decimal.Zero
	}
	return d
}

// EncodeOrder appends the full order record including its sequence.
func EncodeOrder(w *Writer, o *Order) {
	w.Str(o.OrderID)
	w.Str(o.AccountID)
	w.Str(o.Symbol)
	w.U8(uint8(o.Side))
	w.U8(uint8(o.Type))
	w.U8(uint8(o.TimeInForce))
	w.Dec(o.Price)
	w.Dec(o.Quantity)
	w.Dec(o.RemainingQuantity)
	w.Dec(o.FilledQuantity)
	w.U8(uint8(o.Status))
	w.Dec(o.MakerFeeRate)
	w.Dec(o.TakerFeeRate)
	w.U64(o.Sequence)
}

// DecodeOrder reads an order record written by EncodeOrder.
func DecodeOrder(r *Reader) *Order {
	o := &Order{}
	o.OrderID = r.Str()
	o.AccountID = r.Str()
	o.Symbol = r.Str()
	o.Side = Side(r.U8())
	o.Type = OrderType(r.U8())
	o.TimeInForce = TimeInForce(r.U8())
	o.Price = r.Dec()
	o.Quantity = r.Dec()
	o.RemainingQuantity = r.Dec()
	o.FilledQuantity = r.Dec()
	o.Status = OrderStatus(r.U8())
	o.MakerFeeRate = r.Dec()
	o.TakerFeeRate = r.Dec()
	o.Sequence = r.U64()
	return o
}

// EncodeSymbol appends the symbol record.
func EncodeSymbol(w *Writer, s *Symbol) {
	w.Str(s.Name)
	w.Str(s.BaseAsset)
	w.Str(s.QuoteAsset)
	w.I32(s.PricePrecision)
	w.I32(s.QuantityPrecision)
	w.Dec(s.MinQuantity)
	w.Dec(s.MaxQuantity)
	w.Dec(s.MinAmount)
	w.Dec(s.MaxAmount)
	w.U8(uint8(s.Status))
}

// DecodeSymbol reads a symbol record written by EncodeSymbol.
func DecodeSymbol(r *Reader) *Symbol {
	s := &Symbol{}
	s.Name = r.Str()
	s.BaseAsset = r.Str()
	s.QuoteAsset = r.Str()
	s.PricePrecision = r.I32()
	s.QuantityPrecision = r.I32()
	s.MinQuantity = r.Dec()
	s.MaxQuantity = r.Dec()
	s.MinAmount = r.Dec()
	s.MaxAmount = r.Dec()
	s.Status = SymbolStatus(r.U8())
	return s
}
