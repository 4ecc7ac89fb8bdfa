package orderbook

import (
	"sort"

	"github.com/openexch/matchengine/pkg/match/model"
)

type bookEntry struct {
	sym  *model.Symbol
	book *Book
}

// SymbolManager holds one book per live symbol and enforces the symbol
// lifecycle. Like the books it owns, it is driven only by the apply
// loop and needs no locking. The map is never iterated directly; every
// walk goes through the sorted name list to stay deterministic.
type SymbolManager struct {
	entries map[string]*bookEntry
}

func NewSymbolManager() *SymbolManager {
	return &SymbolManager{
		entries: make(map[string]*bookEntry),
	}
}

// Create registers a new symbol with an empty book.
func (m *SymbolManager) Create(sym *model.Symbol) error {
	if _, ok := m.entries[sym.Name]; ok {
		return model.NewError(model.KindInvalidParameter, "symbol %s already exists", sym.Name)
	}
	sym.Status = model.SymbolStatusAlive
	m.entries[sym.Name] = &bookEntry{sym: sym, book: NewBook(sym.Name)}
	return nil
}

// Restore installs a symbol with its rebuilt book during snapshot
// restore, preserving the stored status.
func (m *SymbolManager) Restore(sym *model.Symbol, book *Book) error {
	if _, ok := m.entries[sym.Name]; ok {
		return model.NewError(model.KindInternalError, "symbol %s restored twice", sym.Name)
	}
	m.entries[sym.Name] = &bookEntry{sym: sym, book: book}
	return nil
}

// Update replaces a symbol's market rules. The current status and the
// book are untouched; precision changes affect only orders placed
// afterwards, resting orders keep their normalized values.
func (m *SymbolManager) Update(sym *model.Symbol) error {
	e, ok := m.entries[sym.Name]
	if !ok {
		return model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", sym.Name)
	}
	sym.Status = e.sym.Status
	e.sym = sym
	return nil
}

// Remove stops the symbol, cancels every resting order in book order
// (bids best-first then asks best-first) and drops it from routing.
// The canceled orders are returned with status already set.
func (m *SymbolManager) Remove(name string) ([]*model.Order, error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", name)
	}

	var resting []*model.Order
	e.book.Each(model.SideBuy, func(o *model.Order) bool {
		resting = append(resting, o)
		return true
	})
	e.book.Each(model.SideSell, func(o *model.Order) bool {
		resting = append(resting, o)
		return true
	})
	for _, o := range resting {
		e.book.Cancel(o.OrderID) //nolint:errcheck // o came from the book walk
		o.Status = model.OrderStatusCanceled
	}

	e.sym.Status = model.SymbolStatusStopped
	delete(m.entries, name)
	return resting, nil
}

// Pause stops the symbol from accepting new orders. Cancellations are
// still allowed.
func (m *SymbolManager) Pause(name string) error {
	e, ok := m.entries[name]
	if !ok {
		return model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", name)
	}
	if e.sym.Status != model.SymbolStatusAlive {
		return model.NewError(model.KindSymbolNotTradable, "symbol %s is not alive", name)
	}
	e.sym.Status = model.SymbolStatusPaused
	return nil
}

// Resume returns a paused symbol to Alive.
func (m *SymbolManager) Resume(name string) error {
	e, ok := m.entries[name]
	if !ok {
		return model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", name)
	}
	if e.sym.Status != model.SymbolStatusPaused {
		return model.NewError(model.KindSymbolNotTradable, "symbol %s is not paused", name)
	}
	e.sym.Status = model.SymbolStatusAlive
	return nil
}

// GetActive returns the symbol and book iff the symbol accepts new
// orders.
func (m *SymbolManager) GetActive(name string) (*model.Symbol, *Book, error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, nil, model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", name)
	}
	if e.sym.Status != model.SymbolStatusAlive {
		return nil, nil, model.NewError(model.KindSymbolNotTradable, "symbol %s is %s", name, e.sym.Status)
	}
	return e.sym, e.book, nil
}

// GetForCancel returns the book for cancellation, which paused symbols
// still allow.
func (m *SymbolManager) GetForCancel(name string) (*Book, error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, model.NewError(model.KindSymbolNotTradable, "symbol %s does not exist", name)
	}
	return e.book, nil
}

// Get returns the symbol and book regardless of status.
func (m *SymbolManager) Get(name string) (*model.Symbol, *Book, bool) {
	e, ok := m.entries[name]
	if !ok {
		return nil, nil, false
	}
	return e.sym, e.book, true
}

// Names returns all live symbol names in sorted order.
func (m *SymbolManager) Names() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns copies of all symbols sorted by name.
func (m *SymbolManager) List() []*model.Symbol {
	names := m.Names()
	out := make([]*model.Symbol, 0, len(names))
	for _, name := range names {
		out = append(out, m.entries[name].sym.Clone())
	}
	return out
}

// Len returns the number of live symbols.
func (m *SymbolManager) Len() int {
	return len(m.entries)
}
