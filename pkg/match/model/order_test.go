package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testSymbol(t *testing.T) *Symbol {
	t.Helper()
	sym, err := NewSymbol("BTC/USDT", "BTC", "USDT", 2, 4,
		dec("0.0001"), dec("1000"), dec("1"), dec("100000000"))
	if err != nil {
		t.Fatalf("NewSymbol: %v", err)
	}
	return sym
}

func TestNewSymbolInvariants(t *testing.T) {
	if _, err := NewSymbol("X/Y", "X", "Y", 25, 0, dec("1"), dec("2"), dec("1"), dec("2")); err == nil {
		t.Error("expected error for price precision out of range")
	}
	if _, err := NewSymbol("X/Y", "X", "Y", 2, 0, dec("5"), dec("2"), dec("1"), dec("2")); err == nil {
		t.Error("expected error for min_quantity > max_quantity")
	}
	if _, err := NewSymbol("X/Y", "X", "Y", 2, 0, dec("1"), dec("2"), dec("9"), dec("2")); err == nil {
		t.Error("expected error for min_amount > max_amount")
	}
	if _, err := NewSymbol("", "X", "Y", 2, 0, dec("1"), dec("2"), dec("1"), dec("2")); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestNewOrderNormalizes(t *testing.T) {
	sym := testSymbol(t)
	o, err := NewOrder(sym, "O1", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("50000.004"), dec("1.00004"), dec("0.001"), dec("0.002"))
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if !o.Price.Equal(dec("50000")) {
		t.Errorf("price = %s, want 50000", o.Price)
	}
	if !o.Quantity.Equal(dec("1")) {
		t.Errorf("quantity = %s, want 1", o.Quantity)
	}
	if !o.RemainingQuantity.Equal(o.Quantity) || !o.FilledQuantity.IsZero() {
		t.Errorf("fresh order must have remaining=quantity, filled=0")
	}
	if o.Status != OrderStatusNew {
		t.Errorf("status = %s, want New", o.Status)
	}
}

func TestNewOrderRejections(t *testing.T) {
	sym := testSymbol(t)

	// quantity collapses to zero
	if _, err := NewOrder(sym, "O1", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("50000"), dec("0.00004"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for quantity collapsing to zero")
	}
	// quantity above limit
	if _, err := NewOrder(sym, "O2", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("50000"), dec("5000"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for quantity above max")
	}
	// amount below min
	if _, err := NewOrder(sym, "O3", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("0.01"), dec("0.0001"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for amount below min")
	}
	// market + GTC is illegal
	if _, err := NewOrder(sym, "O4", "A1", SideBuy, OrderTypeMarket, TimeInForceGTC,
		decimal.Zero, dec("1"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for market GTC")
	}
	// limit-maker must be GTC
	if _, err := NewOrder(sym, "O5", "A1", SideBuy, OrderTypeLimitMaker, TimeInForceIOC,
		dec("50000"), dec("1"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for limit-maker IOC")
	}
	// empty order id
	if _, err := NewOrder(sym, "", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("50000"), dec("1"), decimal.Zero, decimal.Zero); err == nil {
		t.Error("expected rejection for empty order id")
	}
}

func TestNewOrderAmountAtExactMin(t *testing.T) {
	sym := testSymbol(t)
	// price * qty == min_amount exactly is accepted
	o, err := NewOrder(sym, "O1", "A1", SideBuy, OrderTypeLimit, TimeInForceGTC,
		dec("10000"), dec("0.0001"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("NewOrder at exact min amount: %v", err)
	}
	if !o.Price.Mul(o.Quantity).Equal(sym.MinAmount) {
		t.Errorf("amount = %s, want %s", o.Price.Mul(o.Quantity), sym.MinAmount)
	}
}

func TestOrderFillTransitions(t *testing.T) {
	sym := testSymbol(t)
	o, err := NewOrder(sym, "O1", "A1", SideSell, OrderTypeLimit, TimeInForceGTC,
		dec("50000"), dec("2"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}

	o.Fill(dec("0.5"))
	if o.Status != OrderStatusPartiallyFilled {
		t.Errorf("status = %s, want PartiallyFilled", o.Status)
	}
	if !o.FilledQuantity.Add(o.RemainingQuantity).Equal(o.Quantity) {
		t.Error("filled + remaining must equal original quantity")
	}

	o.Fill(dec("1.5"))
	if o.Status != OrderStatusFilled {
		t.Errorf("status = %s, want Filled", o.Status)
	}
	if !o.RemainingQuantity.IsZero() {
		t.Errorf("remaining = %s, want 0", o.RemainingQuantity)
	}
	if o.CanCancel() {
		t.Error("filled order must not be cancelable")
	}
}
