package tradesink

import (
	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/match/model"
)

// TradeRecord is the SQL row for one half-trade. trade_id is the
// primary key, which is what makes replay after a failover idempotent:
// conflicting inserts are dropped.
type TradeRecord struct {
	TradeID        uint64          `gorm:"column:trade_id;primaryKey"`
	TicketID       uint64          `gorm:"column:ticket_id;index"`
	Symbol         string          `gorm:"column:symbol;index"`
	OrderID        string          `gorm:"column:order_id;index"`
	AccountID      string          `gorm:"column:account_id;index"`
	MatchOrderID   string          `gorm:"column:match_order_id"`
	MatchAccountID string          `gorm:"column:match_account_id"`
	Side           string          `gorm:"column:side"`
	IsMaker        bool            `gorm:"column:is_maker"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(38,18)"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(38,18)"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(38,18)"`
	TradeFee       decimal.Decimal `gorm:"column:trade_fee;type:numeric(38,18)"`
	MatchTime      int64           `gorm:"column:match_time"`
}

func (TradeRecord) TableName() string {
	return "trades"
}

func recordFromTrade(t *model.Trade) *TradeRecord {
	return &TradeRecord{
		TradeID:        t.TradeID,
		TicketID:       t.TicketID,
		Symbol:         t.Symbol,
		OrderID:        t.OrderID,
		AccountID:      t.AccountID,
		MatchOrderID:   t.MatchOrderID,
		MatchAccountID: t.MatchAccountID,
		Side:           t.Side.String(),
		IsMaker:        t.IsMaker,
		Price:          t.Price,
		Quantity:       t.Quantity,
		Amount:         t.Amount,
		TradeFee:       t.TradeFee,
		MatchTime:      t.MatchTime,
	}
}
