package model

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCommandRoundTripPlaceOrder(t *testing.T) {
	order := &Order{
		OrderID:           "O-7",
		AccountID:         "A-1",
		Symbol:            "BTC/USDT",
		Side:              SideBuy,
		Type:              OrderTypeLimit,
		TimeInForce:       TimeInForceGTC,
		Price:             dec("50000.25"),
		Quantity:          dec("1.5"),
		RemainingQuantity: dec("1.5"),
		FilledQuantity:    decimal.Zero,
		Status:            OrderStatusNew,
		MakerFeeRate:      dec("0.001"),
		TakerFeeRate:      dec("0.002"),
	}
	in := &Command{Tag: TagPlaceOrder, ApplyTime: 1234567890, Order: order}

	data, err := EncodeCommand(in)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	out, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}

	if out.Tag != TagPlaceOrder || out.ApplyTime != 1234567890 {
		t.Errorf("header mismatch: %+v", out)
	}
	got := out.Order
	if got.OrderID != order.OrderID || got.Symbol != order.Symbol ||
		got.Side != order.Side || got.Type != order.Type || got.TimeInForce != order.TimeInForce {
		t.Errorf("order mismatch: %+v", got)
	}
	if !got.Price.Equal(order.Price) || !got.Quantity.Equal(order.Quantity) {
		t.Errorf("price/quantity mismatch: %s %s", got.Price, got.Quantity)
	}
	if !got.MakerFeeRate.Equal(order.MakerFeeRate) || !got.TakerFeeRate.Equal(order.TakerFeeRate) {
		t.Errorf("fee mismatch: %s %s", got.MakerFeeRate, got.TakerFeeRate)
	}
}

func TestCommandRoundTripCancel(t *testing.T) {
	in := &Command{Tag: TagCancelOrder, ApplyTime: 42, SymbolName: "BTC/USDT", OrderID: "O-9"}
	data, err := EncodeCommand(in)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	out, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if out.SymbolName != "BTC/USDT" || out.OrderID != "O-9" {
		t.Errorf("payload mismatch: %+v", out)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	w := NewWriter()
	w.U64(1)
	w.U8(200)
	if _, err := DecodeCommand(w.Bytes()); !errors.Is(err, ErrUnknownCommandTag) {
		t.Errorf("expected ErrUnknownCommandTag, got %v", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	in := &Command{Tag: TagRemoveSymbol, ApplyTime: 1, SymbolName: "BTC/USDT"}
	data, err := EncodeCommand(in)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	if _, err := DecodeCommand(data[:len(data)-3]); err == nil {
		t.Error("expected error for truncated entry")
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	sym := &Symbol{
		Name: "ETH/USDT", BaseAsset: "ETH", QuoteAsset: "USDT",
		PricePrecision: 2, QuantityPrecision: 4,
		MinQuantity: dec("0.001"), MaxQuantity: dec("100"),
		MinAmount: dec("10"), MaxAmount: dec("1000000"),
		Status: SymbolStatusAlive,
	}
	a, err := EncodeCommand(&Command{Tag: TagCreateSymbol, ApplyTime: 7, Symbol: sym})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	b, err := EncodeCommand(&Command{Tag: TagCreateSymbol, ApplyTime: 7, Symbol: sym})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical commands must encode identically")
	}
}
