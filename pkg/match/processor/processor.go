package processor

import (
	"go.uber.org/zap"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/orderbook"
)

// ApplyResult is what one committed command produced. On the leader it
// travels back to the waiting request; followers compute the identical
// result and discard it.
type ApplyResult struct {
	Code    model.Code
	Message string
	// Order is the final state of the order the command touched.
	Order *model.Order
	// Trades emitted by a PlaceOrder, in match order.
	Trades []*model.Trade
	// Canceled carries the resting orders a RemoveSymbol evicted.
	Canceled []*model.Order
}

func failure(err error) *ApplyResult {
	kind := model.KindOf(err)
	return &ApplyResult{Code: kind.Code(), Message: err.Error()}
}

// OrderProcessor is the single entry point for committed commands. It
// owns the symbol manager and the deterministic id counters, and is
// driven by exactly one apply goroutine; nothing here locks.
type OrderProcessor struct {
	symbols  *orderbook.SymbolManager
	counters model.Counters
	history  *orderHistory
	log      *zap.Logger
}

// New returns an empty processor retaining historyRetention terminal
// orders for queries.
func New(historyRetention int, logger *zap.Logger) *OrderProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderProcessor{
		symbols: orderbook.NewSymbolManager(),
		history: newOrderHistory(historyRetention),
		log:     logger,
	}
}

// Apply executes one committed command. It never reads the wall clock;
// time comes from the command itself.
func (p *OrderProcessor) Apply(cmd *model.Command) *ApplyResult {
	switch cmd.Tag {
	case model.TagCreateSymbol:
		return p.createSymbol(cmd.Symbol)
	case model.TagUpdateSymbol:
		return p.updateSymbol(cmd.Symbol)
	case model.TagRemoveSymbol:
		return p.removeSymbol(cmd.SymbolName)
	case model.TagPauseSymbol:
		return p.pauseSymbol(cmd.SymbolName)
	case model.TagResumeSymbol:
		return p.resumeSymbol(cmd.SymbolName)
	case model.TagPlaceOrder:
		return p.placeOrder(cmd)
	case model.TagCancelOrder:
		return p.cancelOrder(cmd.SymbolName, cmd.OrderID)
	}
	p.log.Error("unknown command tag in apply", zap.Uint8("tag", uint8(cmd.Tag)))
	return &ApplyResult{Code: model.CodeInternalError, Message: "unknown command tag"}
}

func (p *OrderProcessor) createSymbol(sym *model.Symbol) *ApplyResult {
	if sym == nil {
		return failure(model.NewError(model.KindInvalidParameter, "missing symbol"))
	}
	if err := sym.Validate(); err != nil {
		return failure(err)
	}
	if err := p.symbols.Create(sym); err != nil {
		return failure(err)
	}
	return &ApplyResult{Code: model.CodeSuccess}
}

func (p *OrderProcessor) updateSymbol(sym *model.Symbol) *ApplyResult {
	if sym == nil {
		return failure(model.NewError(model.KindInvalidParameter, "missing symbol"))
	}
	if err := sym.Validate(); err != nil {
		return failure(err)
	}
	if err := p.symbols.Update(sym); err != nil {
		return failure(err)
	}
	return &ApplyResult{Code: model.CodeSuccess}
}

func (p *OrderProcessor) removeSymbol(name string) *ApplyResult {
	canceled, err := p.symbols.Remove(name)
	if err != nil {
		return failure(err)
	}
	for _, o := range canceled {
		p.history.Push(o)
	}
	return &ApplyResult{Code: model.CodeSuccess, Canceled: cloneOrders(canceled)}
}

func (p *OrderProcessor) pauseSymbol(name string) *ApplyResult {
	if err := p.symbols.Pause(name); err != nil {
		return failure(err)
	}
	return &ApplyResult{Code: model.CodeSuccess}
}

func (p *OrderProcessor) resumeSymbol(name string) *ApplyResult {
	if err := p.symbols.Resume(name); err != nil {
		return failure(err)
	}
	return &ApplyResult{Code: model.CodeSuccess}
}

func (p *OrderProcessor) placeOrder(cmd *model.Command) *ApplyResult {
	in := cmd.Order
	if in == nil {
		return failure(model.NewError(model.KindInvalidParameter, "missing order"))
	}
	sym, book, err := p.symbols.GetActive(in.Symbol)
	if err != nil {
		return failure(err)
	}
	if _, ok := book.Get(in.OrderID); ok || p.history.Has(in.Symbol, in.OrderID) {
		return failure(model.NewError(model.KindDuplicateOrderID, "order %s already known for %s", in.OrderID, in.Symbol))
	}

	order, err := model.NewOrder(sym, in.OrderID, in.AccountID, in.Side, in.Type,
		in.TimeInForce, in.Price, in.Quantity, in.MakerFeeRate, in.TakerFeeRate)
	if err != nil {
		rejected := in.Clone()
		rejected.Status = model.OrderStatusRejected
		p.history.Push(rejected)
		res := failure(err)
		res.Order = rejected.Clone()
		return res
	}

	trades := orderbook.MatchOrder(book, sym, order, &p.counters, cmd.ApplyTime)
	if order.Status.Terminal() {
		p.history.Push(order)
	}
	return &ApplyResult{
		Code:   model.CodeSuccess,
		Order:  order.Clone(),
		Trades: trades,
	}
}

func (p *OrderProcessor) cancelOrder(symbolName, orderID string) *ApplyResult {
	book, err := p.symbols.GetForCancel(symbolName)
	if err != nil {
		return failure(err)
	}
	order, err := book.Cancel(orderID)
	if err != nil {
		return failure(model.NewError(model.KindOrderNotFound, "order %s not found for %s", orderID, symbolName))
	}
	order.Status = model.OrderStatusCanceled
	p.history.Push(order)
	return &ApplyResult{Code: model.CodeSuccess, Order: order.Clone()}
}

// QueryOrder reads the current state of an order: resting orders from
// the book, terminal ones from the bounded history window.
func (p *OrderProcessor) QueryOrder(symbolName, orderID string) (*model.Order, error) {
	if _, book, ok := p.symbols.Get(symbolName); ok {
		if o, ok := book.Get(orderID); ok {
			return o.Clone(), nil
		}
	}
	if o, ok := p.history.Get(symbolName, orderID); ok {
		return o.Clone(), nil
	}
	return nil, model.NewError(model.KindOrderNotFound, "order %s not found for %s", orderID, symbolName)
}

// ListSymbols returns all live symbols sorted by name.
func (p *OrderProcessor) ListSymbols() []*model.Symbol {
	return p.symbols.List()
}

// Depth returns aggregated book depth for a symbol.
func (p *OrderProcessor) Depth(symbolName string, limit int) (bids, asks []orderbook.Level, err error) {
	_, book, ok := p.symbols.Get(symbolName)
	if !ok {
		return nil, nil, model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", symbolName)
	}
	bids, asks = book.Depth(limit)
	return bids, asks, nil
}

func cloneOrders(in []*model.Order) []*model.Order {
	out := make([]*model.Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}
