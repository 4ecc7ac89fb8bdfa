package processor

import "github.com/openexch/matchengine/pkg/match/model"

// orderHistory retains terminal orders for QueryOrder over a bounded
// window. Oldest entries are evicted first once the window is full.
// The history is node-local: it is rebuilt empty after a restore and
// is not part of the replicated snapshot.
type orderHistory struct {
	cap   int
	byKey map[string]*model.Order
	fifo  []string
}

func newOrderHistory(capacity int) *orderHistory {
	if capacity <= 0 {
		capacity = 10000
	}
	return &orderHistory{
		cap:   capacity,
		byKey: make(map[string]*model.Order),
	}
}

func historyKey(symbol, orderID string) string {
	return symbol + "/" + orderID
}

func (h *orderHistory) Push(o *model.Order) {
	key := historyKey(o.Symbol, o.OrderID)
	if _, ok := h.byKey[key]; !ok {
		h.fifo = append(h.fifo, key)
	}
	h.byKey[key] = o
	for len(h.fifo) > h.cap {
		evict := h.fifo[0]
		h.fifo = h.fifo[1:]
		delete(h.byKey, evict)
	}
}

func (h *orderHistory) Get(symbol, orderID string) (*model.Order, bool) {
	o, ok := h.byKey[historyKey(symbol, orderID)]
	return o, ok
}

func (h *orderHistory) Has(symbol, orderID string) bool {
	_, ok := h.byKey[historyKey(symbol, orderID)]
	return ok
}

func (h *orderHistory) Reset() {
	h.byKey = make(map[string]*model.Order)
	h.fifo = nil
}
