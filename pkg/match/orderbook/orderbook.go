package orderbook

import (
	"container/heap"
	"sort"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/match/model"
)

// priceLevel is one price with its insertion-ordered queue of resting
// orders. Oldest (lowest sequence) sits at the front.
type priceLevel struct {
	price  decimal.Decimal
	orders deque.Deque[*model.Order]
}

// Book is the two-sided limit order book for a single symbol. It is not
// safe for concurrent use; the apply loop is its only writer.
type Book struct {
	symbol string

	bids map[string]*priceLevel
	asks map[string]*priceLevel

	bidHeap *PriceHeap
	askHeap *PriceHeap

	// index supports cancellation and duplicate-id checks by order id.
	index map[string]*model.Order

	sequence uint64
}

// NewBook returns an empty book for the symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol:  symbol,
		bids:    make(map[string]*priceLevel),
		asks:    make(map[string]*priceLevel),
		bidHeap: NewPriceHeap(func(i, j decimal.Decimal) bool { return i.GreaterThan(j) }), // max-heap
		askHeap: NewPriceHeap(func(i, j decimal.Decimal) bool { return i.LessThan(j) }),    // min-heap
		index:   make(map[string]*model.Order),
	}
}

// Symbol returns the symbol this book belongs to.
func (b *Book) Symbol() string {
	return b.symbol
}

// Len returns the number of live orders resting in the book.
func (b *Book) Len() int {
	return len(b.index)
}

// Sequence returns the last sequence number assigned by Insert.
func (b *Book) Sequence() uint64 {
	return b.sequence
}

func (b *Book) side(s model.Side) (map[string]*priceLevel, *PriceHeap) {
	if s == model.SideBuy {
		return b.bids, b.bidHeap
	}
	return b.asks, b.askHeap
}

// Insert places a resting order at the tail of its price level and
// assigns the next per-book sequence number.
func (b *Book) Insert(o *model.Order) error {
	if _, ok := b.index[o.OrderID]; ok {
		return errDuplicateOrder
	}
	b.sequence++
	o.Sequence = b.sequence
	b.insertResting(o)
	return nil
}

// insertResting files an order that already carries a sequence number.
// Restore uses it directly to rebuild queues byte-for-byte.
func (b *Book) insertResting(o *model.Order) {
	levels, h := b.side(o.Side)
	key := o.Price.String()
	lvl, ok := levels[key]
	if !ok {
		lvl = &priceLevel{price: o.Price}
		levels[key] = lvl
		heap.Push(h, o.Price)
	}
	lvl.orders.PushBack(o)
	b.index[o.OrderID] = o
}

// Best returns the top price of the given side, cleaning up exhausted
// levels on the way.
func (b *Book) Best(s model.Side) (decimal.Decimal, bool) {
	levels, h := b.side(s)
	for {
		price, ok := h.Peek()
		if !ok {
			return decimal.Zero, false
		}
		lvl, ok := levels[price.String()]
		if !ok || lvl.orders.Len() == 0 {
			heap.Pop(h)
			delete(levels, price.String())
			continue
		}
		return price, true
	}
}

// BestBid returns the highest resting buy price.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	return b.Best(model.SideBuy)
}

// BestAsk returns the lowest resting sell price.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	return b.Best(model.SideSell)
}

// HeadOf returns the oldest order resting at the given side and price.
func (b *Book) HeadOf(s model.Side, price decimal.Decimal) (*model.Order, bool) {
	levels, _ := b.side(s)
	lvl, ok := levels[price.String()]
	if !ok || lvl.orders.Len() == 0 {
		return nil, false
	}
	return lvl.orders.Front(), true
}

// Get returns a live order by id.
func (b *Book) Get(orderID string) (*model.Order, bool) {
	o, ok := b.index[orderID]
	return o, ok
}

// Reduce decrements the order's remaining quantity, removing it from
// the book once nothing remains.
func (b *Book) Reduce(orderID string, qty decimal.Decimal) error {
	o, ok := b.index[orderID]
	if !ok {
		return errOrderNotFound
	}
	o.Fill(qty)
	if o.RemainingQuantity.IsZero() {
		b.unlink(o)
	}
	return nil
}

// Cancel removes the order from the book and returns it. The caller
// owns the status transition.
func (b *Book) Cancel(orderID string) (*model.Order, error) {
	o, ok := b.index[orderID]
	if !ok {
		return nil, errOrderNotFound
	}
	b.unlink(o)
	return o, nil
}

func (b *Book) unlink(o *model.Order) {
	levels, _ := b.side(o.Side)
	key := o.Price.String()
	if lvl, ok := levels[key]; ok {
		at := lvl.orders.Index(func(x *model.Order) bool { return x.OrderID == o.OrderID })
		if at >= 0 {
			lvl.orders.Remove(at)
		}
		if lvl.orders.Len() == 0 {
			delete(levels, key)
			// Heap entry is dropped lazily by Best.
		}
	}
	delete(b.index, o.OrderID)
}

// AvailableQty sums the resting quantity on side s over levels
// accepted by the crossable predicate. Used by the FOK preflight.
func (b *Book) AvailableQty(s model.Side, crossable func(decimal.Decimal) bool) decimal.Decimal {
	total := decimal.Zero
	b.Each(s, func(o *model.Order) bool {
		if !crossable(o.Price) {
			return false
		}
		total = total.Add(o.RemainingQuantity)
		return true
	})
	return total
}

// Each walks one side in ladder order: bids highest price first, asks
// lowest price first, oldest sequence first within a level. The walk
// stops when fn returns false. Iteration order is fully deterministic.
func (b *Book) Each(s model.Side, fn func(*model.Order) bool) {
	levels, _ := b.side(s)
	for _, lvl := range b.sortedLevels(levels, s) {
		for i := 0; i < lvl.orders.Len(); i++ {
			if !fn(lvl.orders.At(i)) {
				return
			}
		}
	}
}

func (b *Book) sortedLevels(levels map[string]*priceLevel, s model.Side) []*priceLevel {
	out := make([]*priceLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.orders.Len() > 0 {
			out = append(out, lvl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if s == model.SideBuy {
			return out[i].price.GreaterThan(out[j].price)
		}
		return out[i].price.LessThan(out[j].price)
	})
	return out
}

// Level is one aggregated depth entry.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Count    int
}

// Depth returns up to limit aggregated levels per side, best first.
func (b *Book) Depth(limit int) (bids, asks []Level) {
	collect := func(s model.Side) []Level {
		var out []Level
		for _, lvl := range b.sortedLevels(b.sideLevels(s), s) {
			if limit > 0 && len(out) == limit {
				break
			}
			qty := decimal.Zero
			for i := 0; i < lvl.orders.Len(); i++ {
				qty = qty.Add(lvl.orders.At(i).RemainingQuantity)
			}
			out = append(out, Level{Price: lvl.price, Quantity: qty, Count: lvl.orders.Len()})
		}
		return out
	}
	return collect(model.SideBuy), collect(model.SideSell)
}

func (b *Book) sideLevels(s model.Side) map[string]*priceLevel {
	levels, _ := b.side(s)
	return levels
}

// EncodeTo appends the book's live orders to a snapshot frame: the
// sequence counter, the order count, then every order in ladder order
// (bids first, then asks).
func (b *Book) EncodeTo(w *model.Writer) {
	w.U64(b.sequence)
	w.U32(uint32(b.Len()))
	b.Each(model.SideBuy, func(o *model.Order) bool {
		model.EncodeOrder(w, o)
		return true
	})
	b.Each(model.SideSell, func(o *model.Order) bool {
		model.EncodeOrder(w, o)
		return true
	})
}

// DecodeBook rebuilds a book from a snapshot frame written by EncodeTo.
func DecodeBook(symbol string, r *model.Reader) (*Book, error) {
	b := NewBook(symbol)
	b.sequence = r.U64()
	n := r.U32()
	for i := uint32(0); i < n; i++ {
		o := model.DecodeOrder(r)
		if r.Err() != nil {
			return nil, r.Err()
		}
		b.insertResting(o)
	}
	return b, r.Err()
}
