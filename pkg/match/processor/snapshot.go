package processor

import (
	"fmt"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/orderbook"
)

// Snapshot layout, all frames from the shared codec:
//
//	u32 version
//	u64 trade id counter, u64 ticket id counter
//	u32 symbol count, then per symbol sorted by name:
//	  symbol record, u64 book sequence, u32 order count, orders in
//	  ladder order (bids then asks) with their sequence numbers
//
// The layout is byte-deterministic for identical state, which is what
// lets replicas compare snapshots directly.
const snapshotVersion = 1

// Snapshot serializes the full engine state. It must only run between
// commands, from a quiesced apply loop.
func (p *OrderProcessor) Snapshot() []byte {
	w := model.NewWriter()
	w.U32(snapshotVersion)
	w.U64(p.counters.TradeID)
	w.U64(p.counters.TicketID)

	names := p.symbols.Names()
	w.U32(uint32(len(names)))
	for _, name := range names {
		sym, book, _ := p.symbols.Get(name)
		model.EncodeSymbol(w, sym)
		book.EncodeTo(w)
	}
	return w.Bytes()
}

// Restore replaces the engine state with a snapshot. The query history
// starts empty on the restored node.
func (p *OrderProcessor) Restore(data []byte) error {
	r := model.NewReader(data)
	version := r.U32()
	if r.Err() != nil {
		return r.Err()
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", version)
	}

	counters := model.Counters{
		TradeID:  r.U64(),
		TicketID: r.U64(),
	}
	symbols := orderbook.NewSymbolManager()
	n := r.U32()
	for i := uint32(0); i < n; i++ {
		sym := model.DecodeSymbol(r)
		if r.Err() != nil {
			return r.Err()
		}
		book, err := orderbook.DecodeBook(sym.Name, r)
		if err != nil {
			return err
		}
		if err := symbols.Restore(sym, book); err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}

	p.counters = counters
	p.symbols = symbols
	p.history.Reset()
	return nil
}
