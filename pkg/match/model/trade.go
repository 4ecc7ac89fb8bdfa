package model

import "github.com/shopspring/decimal"

// Trade is one half of a match event. Every match emits two trades
// sharing a ticket id: the maker half first, then the taker half.
type Trade struct {
	TradeID        uint64
	TicketID       uint64
	Symbol         string
	OrderID        string
	AccountID      string
	MatchOrderID   string
	MatchAccountID string
	Side           Side
	IsMaker        bool
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Amount         decimal.Decimal
	TradeFee       decimal.Decimal
	// MatchTime is the command apply time in nanoseconds since epoch,
	// identical on every replica.
	MatchTime int64
}

// Counters are the deterministic id allocators owned by the order
// processor. They are part of the replicated state and are included in
// snapshots.
type Counters struct {
	TradeID  uint64
	TicketID uint64
	// Sequence counters live per book, not here.
}

// NextTradeID allocates the next trade id.
func (c *Counters) NextTradeID() uint64 {
	c.TradeID++
	return c.TradeID
}

// NextTicketID allocates the next ticket id.
func (c *Counters) NextTicketID() uint64 {
	c.TicketID++
	return c.TicketID
}
