package model

import (
	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/decimalutil"
)

type SymbolStatus uint8

const (
	SymbolStatusAlive SymbolStatus = iota + 1
	SymbolStatusPaused
	SymbolStatusStopped
)

func (s SymbolStatus) String() string {
	switch s {
	case SymbolStatusAlive:
		return "Alive"
	case SymbolStatusPaused:
		return "Paused"
	case SymbolStatusStopped:
		return "Stopped"
	}
	return "Unknown"
}

const (
	minPrecision = -9
	maxPrecision = 18
)

// Symbol is a trading pair and its market rules.
type Symbol struct {
	Name              string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int32
	QuantityPrecision int32
	MinQuantity       decimal.Decimal
	MaxQuantity       decimal.Decimal
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	Status            SymbolStatus
}

// NewSymbol validates the market rules and returns an Alive symbol.
func NewSymbol(name, base, quote string, pricePrecision, quantityPrecision int32,
	minQty, maxQty, minAmount, maxAmount decimal.Decimal) (*Symbol, error) {
	s := &Symbol{
		Name:              name,
		BaseAsset:         base,
		QuoteAsset:        quote,
		PricePrecision:    pricePrecision,
		QuantityPrecision: quantityPrecision,
		MinQuantity:       minQty,
		MaxQuantity:       maxQty,
		MinAmount:         minAmount,
		MaxAmount:         maxAmount,
		Status:            SymbolStatusAlive,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the symbol invariants.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return NewError(KindInvalidParameter, "symbol name is empty")
	}
	if s.Status == 0 {
		s.Status = SymbolStatusAlive
	}
	if s.PricePrecision < minPrecision || s.PricePrecision > maxPrecision {
		return NewError(KindInvalidParameter, "price precision %d out of range [%d, %d]", s.PricePrecision, minPrecision, maxPrecision)
	}
	if s.QuantityPrecision < minPrecision || s.QuantityPrecision > maxPrecision {
		return NewError(KindInvalidParameter, "quantity precision %d out of range [%d, %d]", s.QuantityPrecision, minPrecision, maxPrecision)
	}
	if s.MinQuantity.GreaterThan(s.MaxQuantity) {
		return NewError(KindInvalidParameter, "min_quantity %s > max_quantity %s", s.MinQuantity, s.MaxQuantity)
	}
	if s.MinAmount.GreaterThan(s.MaxAmount) {
		return NewError(KindInvalidParameter, "min_amount %s > max_amount %s", s.MinAmount, s.MaxAmount)
	}
	if s.MinQuantity.IsNegative() || s.MinAmount.IsNegative() {
		return NewError(KindInvalidParameter, "limits must not be negative")
	}
	return nil
}

// RoundPrice normalizes a price to the symbol tick.
func (s *Symbol) RoundPrice(price decimal.Decimal) decimal.Decimal {
	return decimalutil.RoundPrice(price, s.PricePrecision)
}

// RoundQuantity normalizes a quantity to the symbol lot.
func (s *Symbol) RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	return decimalutil.Round(qty, s.QuantityPrecision)
}

// RoundAmount rounds a quote-asset amount. Amounts and fees share the
// price precision since both are denominated in the quote asset.
func (s *Symbol) RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return decimalutil.Round(amount, s.PricePrecision)
}

// ValidQuantity reports whether qty is within the symbol limits.
func (s *Symbol) ValidQuantity(qty decimal.Decimal) bool {
	return qty.GreaterThanOrEqual(s.MinQuantity) && qty.LessThanOrEqual(s.MaxQuantity)
}

// ValidAmount reports whether a quote amount is within the symbol limits.
func (s *Symbol) ValidAmount(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(s.MinAmount) && amount.LessThanOrEqual(s.MaxAmount)
}

// Clone returns a copy safe to hand out of the apply loop.
func (s *Symbol) Clone() *Symbol {
	cp := *s
	return &cp
}
