package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/match/model"
)

// MatchOrder drives the book with an incoming, already-normalized
// order and returns the emitted trades in match order (maker half then
// taker half per ticket). The taker's status, filled and remaining
// quantities are updated in place; resting makers are reduced through
// the book. MatchOrder never fails: ineligible orders come out
// Canceled or Rejected with no trades and the book untouched.
func MatchOrder(book *Book, sym *model.Symbol, taker *model.Order, counters *model.Counters, matchTime int64) []*model.Trade {
	crossable := crossableFunc(taker)
	opp := taker.Side.Opposite()

	// FOK fills fully or not at all, decided before touching the book.
	if taker.TimeInForce == model.TimeInForceFOK {
		if book.AvailableQty(opp, crossable).LessThan(taker.RemainingQuantity) {
			taker.Status = model.OrderStatusCanceled
			return nil
		}
	}

	// LimitMaker must never take liquidity on placement.
	if taker.Type == model.OrderTypeLimitMaker {
		if best, ok := book.Best(opp); ok && crossable(best) {
			taker.Status = model.OrderStatusRejected
			return nil
		}
	}

	var trades []*model.Trade
	for taker.RemainingQuantity.IsPositive() {
		best, ok := book.Best(opp)
		if !ok || !crossable(best) {
			break
		}
		maker, ok := book.HeadOf(opp, best)
		if !ok {
			break
		}

		qty := decimal.Min(taker.RemainingQuantity, maker.RemainingQuantity)
		price := maker.Price // makers set the price
		amount := sym.RoundAmount(price.Mul(qty))
		ticket := counters.NextTicketID()

		trades = append(trades,
			&model.Trade{
				TradeID:        counters.NextTradeID(),
				TicketID:       ticket,
				Symbol:         sym.Name,
				OrderID:        maker.OrderID,
				AccountID:      maker.AccountID,
				MatchOrderID:   taker.OrderID,
				MatchAccountID: taker.AccountID,
				Side:           maker.Side,
				IsMaker:        true,
				Price:          price,
				Quantity:       qty,
				Amount:         amount,
				TradeFee:       sym.RoundAmount(amount.Mul(maker.MakerFeeRate)),
				MatchTime:      matchTime,
			},
			&model.Trade{
				TradeID:        counters.NextTradeID(),
				TicketID:       ticket,
				Symbol:         sym.Name,
				OrderID:        taker.OrderID,
				AccountID:      taker.AccountID,
				MatchOrderID:   maker.OrderID,
				MatchAccountID: maker.AccountID,
				Side:           taker.Side,
				IsMaker:        false,
				Price:          price,
				Quantity:       qty,
				Amount:         amount,
				TradeFee:       sym.RoundAmount(amount.Mul(taker.TakerFeeRate)),
				MatchTime:      matchTime,
			},
		)

		book.Reduce(maker.OrderID, qty) //nolint:errcheck // maker came from the book head
		taker.Fill(qty)
	}

	switch {
	case taker.RemainingQuantity.IsZero():
		// Fill already set Filled.
	case taker.Type == model.OrderTypeMarket:
		taker.Status = model.OrderStatusCanceled
	case taker.TimeInForce == model.TimeInForceIOC:
		taker.Status = model.OrderStatusCanceled
	default:
		// Limit GTC or LimitMaker past its preflight rests in the book.
		book.Insert(taker) //nolint:errcheck // duplicate ids rejected upstream
	}

	return trades
}

// crossableFunc returns the predicate deciding whether an opposite
// price is matchable against the taker.
func crossableFunc(taker *model.Order) func(decimal.Decimal) bool {
	if taker.Type == model.OrderTypeMarket {
		return func(decimal.Decimal) bool { return true }
	}
	if taker.Side == model.SideBuy {
		return func(ask decimal.Decimal) bool { return ask.LessThanOrEqual(taker.Price) }
	}
	return func(bid decimal.Decimal) bool { return bid.GreaterThanOrEqual(taker.Price) }
}
