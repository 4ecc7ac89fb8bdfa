package model

import (
	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/decimalutil"
)

type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return "UNKNOWN"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide parses the wire representation of a side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	}
	return 0, NewError(KindInvalidParameter, "unknown side %q", s)
}

type OrderType uint8

const (
	OrderTypeLimit OrderType = iota + 1
	OrderTypeMarket
	OrderTypeLimitMaker
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimitMaker:
		return "LIMIT_MAKER"
	}
	return "UNKNOWN"
}

// ParseOrderType parses the wire representation of an order type.
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "LIMIT":
		return OrderTypeLimit, nil
	case "MARKET":
		return OrderTypeMarket, nil
	case "LIMIT_MAKER":
		return OrderTypeLimitMaker, nil
	}
	return 0, NewError(KindInvalidParameter, "unknown order type %q", s)
}

type TimeInForce uint8

const (
	TimeInForceGTC TimeInForce = iota + 1
	TimeInForceIOC
	TimeInForceFOK
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	}
	return "UNKNOWN"
}

// ParseTimeInForce parses the wire representation of a time in force.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch s {
	case "GTC":
		return TimeInForceGTC, nil
	case "IOC":
		return TimeInForceIOC, nil
	case "FOK":
		return TimeInForceFOK, nil
	}
	return 0, NewError(KindInvalidParameter, "unknown time in force %q", s)
}

type OrderStatus uint8

const (
	OrderStatusNew OrderStatus = iota + 1
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "New"
	case OrderStatusPartiallyFilled:
		return "PartiallyFilled"
	case OrderStatusFilled:
		return "Filled"
	case OrderStatusCanceled:
		return "Canceled"
	case OrderStatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	}
	return false
}

// Order is a single order. Price and quantities are normalized to the
// symbol precisions before the order reaches a book.
type Order struct {
	OrderID           string
	AccountID         string
	Symbol            string
	Side              Side
	Type              OrderType
	TimeInForce       TimeInForce
	Price             decimal.Decimal
	Quantity          decimal.Decimal
	RemainingQuantity decimal.Decimal
	FilledQuantity    decimal.Decimal
	Status            OrderStatus
	MakerFeeRate      decimal.Decimal
	TakerFeeRate      decimal.Decimal
	// Sequence is assigned when the order is inserted into a book and
	// is strictly increasing per symbol.
	Sequence uint64
}

// NewOrder normalizes and validates an order against its symbol. The
// returned error carries the rejection classification; the caller marks
// the order Rejected rather than treating this as a fault.
func NewOrder(sym *Symbol, orderID, accountID string, side Side, typ OrderType,
	tif TimeInForce, price, quantity, makerFeeRate, takerFeeRate decimal.Decimal) (*Order, error) {
	o := &Order{
		OrderID:      orderID,
		AccountID:    accountID,
		Symbol:       sym.Name,
		Side:         side,
		Type:         typ,
		TimeInForce:  tif,
		Price:        price,
		Quantity:     quantity,
		MakerFeeRate: makerFeeRate,
		TakerFeeRate: takerFeeRate,
		Status:       OrderStatusNew,
	}

	if orderID == "" {
		return nil, NewError(KindInvalidParameter, "order id is empty")
	}
	if side != SideBuy && side != SideSell {
		return nil, NewError(KindInvalidParameter, "invalid side")
	}
	switch typ {
	case OrderTypeMarket:
		// Market orders never rest, GTC is meaningless for them.
		if tif == TimeInForceGTC {
			return nil, NewError(KindInvalidParameter, "market orders may not be GTC")
		}
	case OrderTypeLimitMaker:
		if tif != TimeInForceGTC {
			return nil, NewError(KindInvalidParameter, "limit-maker orders must be GTC")
		}
	case OrderTypeLimit:
	default:
		return nil, NewError(KindInvalidParameter, "invalid order type")
	}
	if makerFeeRate.IsNegative() || takerFeeRate.IsNegative() {
		return nil, NewError(KindInvalidParameter, "fee rates must not be negative")
	}

	qty := sym.RoundQuantity(quantity)
	if decimalutil.CollapsesToZero(quantity, qty) || !qty.IsPositive() {
		return nil, NewError(KindInvalidParameter, "quantity %s normalizes to zero", quantity)
	}
	if !sym.ValidQuantity(qty) {
		return nil, NewError(KindInvalidParameter, "quantity %s outside [%s, %s]", qty, sym.MinQuantity, sym.MaxQuantity)
	}
	o.Quantity = qty
	o.RemainingQuantity = qty
	o.FilledQuantity = decimal.Zero

	if typ != OrderTypeMarket {
		p := sym.RoundPrice(price)
		if decimalutil.CollapsesToZero(price, p) || !p.IsPositive() {
			return nil, NewError(KindInvalidParameter, "price %s normalizes to zero", price)
		}
		amount := p.Mul(qty)
		if !sym.ValidAmount(amount) {
			return nil, NewError(KindInvalidParameter, "amount %s outside [%s, %s]", amount, sym.MinAmount, sym.MaxAmount)
		}
		o.Price = p
	} else {
		o.Price = decimal.Zero
	}

	return o, nil
}

// Fill applies a trade quantity to the order and advances its status.
func (o *Order) Fill(qty decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.RemainingQuantity.IsZero() {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

// CanCancel reports whether the order may still be canceled.
func (o *Order) CanCancel() bool {
	return !o.Status.Terminal()
}

// Clone returns a copy safe to hand out of the apply loop.
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}
