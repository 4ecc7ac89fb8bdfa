package api

import (
	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/orderbook"
)

// Response is the common envelope: code 0 is success, everything else
// carries a diagnostic message.
type Response struct {
	Code    int32  `json:"code"`
	Message string `json:"message,omitempty"`
	Leader  string `json:"leader,omitempty"`
}

type CreateSymbolRequest struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"base_asset"`
	QuoteAsset        string `json:"quote_asset"`
	PricePrecision    int32  `json:"price_precision"`
	QuantityPrecision int32  `json:"quantity_precision"`
	MinQuantity       string `json:"min_quantity"`
	MaxQuantity       string `json:"max_quantity"`
	MinAmount         string `json:"min_amount"`
	MaxAmount         string `json:"max_amount"`
}

type PlaceOrderRequest struct {
	Symbol       string `json:"symbol"`
	OrderID      string `json:"order_id"`
	AccountID    string `json:"account_id"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	TimeInForce  string `json:"time_in_force"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	MakerFeeRate string `json:"maker_fee_rate"`
	TakerFeeRate string `json:"taker_fee_rate"`
}

type CancelOrderRequest struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"order_id"`
}

type OrderState struct {
	OrderID           string `json:"order_id"`
	AccountID         string `json:"account_id"`
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	Type              string `json:"type"`
	TimeInForce       string `json:"time_in_force"`
	Price             string `json:"price"`
	Quantity          string `json:"quantity"`
	RemainingQuantity string `json:"remaining_quantity"`
	FilledQuantity    string `json:"filled_quantity"`
	Status            string `json:"status"`
	Sequence          uint64 `json:"sequence,omitempty"`
}

type TradeInfo struct {
	TradeID   uint64 `json:"trade_id"`
	TicketID  uint64 `json:"ticket_id"`
	OrderID   string `json:"order_id"`
	Side      string `json:"side"`
	IsMaker   bool   `json:"is_maker"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Amount    string `json:"amount"`
	TradeFee  string `json:"trade_fee"`
	MatchTime int64  `json:"match_time"`
}

type PlaceOrderResponse struct {
	Response
	Order  *OrderState `json:"order,omitempty"`
	Trades []TradeInfo `json:"trades,omitempty"`
}

type QueryOrderResponse struct {
	Response
	Order *OrderState `json:"order,omitempty"`
}

type SymbolInfo struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"base_asset"`
	QuoteAsset        string `json:"quote_asset"`
	PricePrecision    int32  `json:"price_precision"`
	QuantityPrecision int32  `json:"quantity_precision"`
	MinQuantity       string `json:"min_quantity"`
	MaxQuantity       string `json:"max_quantity"`
	MinAmount         string `json:"min_amount"`
	MaxAmount         string `json:"max_amount"`
	Status            string `json:"status"`
}

type ListSymbolsResponse struct {
	Response
	Symbols []SymbolInfo `json:"symbols"`
}

type DepthLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Count    int    `json:"count"`
}

type DepthResponse struct {
	Response
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

func orderState(o *model.Order) *OrderState {
	if o == nil {
		return nil
	}
	return &OrderState{
		OrderID:           o.OrderID,
		AccountID:         o.AccountID,
		Symbol:            o.Symbol,
		Side:              o.Side.String(),
		Type:              o.Type.String(),
		TimeInForce:       o.TimeInForce.String(),
		Price:             o.Price.String(),
		Quantity:          o.Quantity.String(),
		RemainingQuantity: o.RemainingQuantity.String(),
		FilledQuantity:    o.FilledQuantity.String(),
		Status:            o.Status.String(),
		Sequence:          o.Sequence,
	}
}

func tradeInfos(trades []*model.Trade) []TradeInfo {
	out := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeInfo{
			TradeID:   t.TradeID,
			TicketID:  t.TicketID,
			OrderID:   t.OrderID,
			Side:      t.Side.String(),
			IsMaker:   t.IsMaker,
			Price:     t.Price.String(),
			Quantity:  t.Quantity.String(),
			Amount:    t.Amount.String(),
			TradeFee:  t.TradeFee.String(),
			MatchTime: t.MatchTime,
		})
	}
	return out
}

func symbolInfo(s *model.Symbol) SymbolInfo {
	return SymbolInfo{
		Symbol:            s.Name,
		BaseAsset:         s.BaseAsset,
		QuoteAsset:        s.QuoteAsset,
		PricePrecision:    s.PricePrecision,
		QuantityPrecision: s.QuantityPrecision,
		MinQuantity:       s.MinQuantity.String(),
		MaxQuantity:       s.MaxQuantity.String(),
		MinAmount:         s.MinAmount.String(),
		MaxAmount:         s.MaxAmount.String(),
		Status:            s.Status.String(),
	}
}

func depthLevels(levels []orderbook.Level) []DepthLevel {
	out := make([]DepthLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, DepthLevel{
			Price:    l.Price.String(),
			Quantity: l.Quantity.String(),
			Count:    l.Count,
		})
	}
	return out
}
