package processor

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/match/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func btcSymbol() *model.Symbol {
	return &model.Symbol{
		Name:              "BTC/USDT",
		BaseAsset:         "BTC",
		QuoteAsset:        "USDT",
		PricePrecision:    2,
		QuantityPrecision: 4,
		MinQuantity:       dec("0.0001"),
		MaxQuantity:       dec("1000"),
		MinAmount:         dec("1"),
		MaxAmount:         dec("100000000"),
		Status:            model.SymbolStatusAlive,
	}
}

func createSymbol(t *testing.T, p *OrderProcessor) {
	t.Helper()
	res := p.Apply(&model.Command{Tag: model.TagCreateSymbol, ApplyTime: 1, Symbol: btcSymbol()})
	if res.Code != model.CodeSuccess {
		t.Fatalf("create symbol: %s", res.Message)
	}
}

func placeCmd(id string, side model.Side, tif model.TimeInForce, price, qty string) *model.Command {
	return &model.Command{
		Tag:       model.TagPlaceOrder,
		ApplyTime: 1700000000000000000,
		Order: &model.Order{
			OrderID:      id,
			AccountID:    "acc-" + id,
			Symbol:       "BTC/USDT",
			Side:         side,
			Type:         model.OrderTypeLimit,
			TimeInForce:  tif,
			Price:        dec(price),
			Quantity:     dec(qty),
			MakerFeeRate: dec("0.001"),
			TakerFeeRate: dec("0.002"),
		},
	}
}

func TestPlaceAndMatchThroughCommands(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	res := p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeSuccess || len(res.Trades) != 0 {
		t.Fatalf("resting sell: %+v", res)
	}
	if res.Order.Status != model.OrderStatusNew {
		t.Errorf("sell status = %s, want New", res.Order.Status)
	}

	res = p.Apply(placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeSuccess {
		t.Fatalf("buy: %s", res.Message)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(res.Trades))
	}
	if res.Order.Status != model.OrderStatusFilled {
		t.Errorf("buy status = %s, want Filled", res.Order.Status)
	}
	if res.Trades[0].MatchTime != 1700000000000000000 {
		t.Errorf("match time = %d, want the command apply time", res.Trades[0].MatchTime)
	}
}

func TestDuplicateOrderID(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("O1", model.SideSell, model.TimeInForceGTC, "50000", "1"))
	res := p.Apply(placeCmd("O1", model.SideSell, model.TimeInForceGTC, "50001", "1"))
	if res.Code != model.CodeInvalidParameter {
		t.Errorf("code = %d, want %d", res.Code, model.CodeInvalidParameter)
	}

	// A filled order's id stays known through the history window.
	p.Apply(placeCmd("O2", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	res = p.Apply(placeCmd("O2", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeInvalidParameter {
		t.Errorf("code = %d, want %d", res.Code, model.CodeInvalidParameter)
	}
}

func TestUnknownSymbolFails(t *testing.T) {
	p := New(0, nil)
	res := p.Apply(placeCmd("O1", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeFail {
		t.Errorf("code = %d, want %d", res.Code, model.CodeFail)
	}
}

func TestRejectedOrderIsNormalOutcome(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"))

	cmd := placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "50000", "2")
	cmd.Order.Type = model.OrderTypeLimitMaker
	res := p.Apply(cmd)
	if res.Code != model.CodeSuccess {
		t.Errorf("limit-maker rejection must be a success response, got %d", res.Code)
	}
	if res.Order.Status != model.OrderStatusRejected {
		t.Errorf("status = %s, want Rejected", res.Order.Status)
	}

	cmd = placeCmd("B2", model.SideBuy, model.TimeInForceFOK, "50000", "2")
	res = p.Apply(cmd)
	if res.Code != model.CodeSuccess {
		t.Errorf("FOK cancel must be a success response, got %d", res.Code)
	}
	if res.Order.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want Canceled", res.Order.Status)
	}
}

func TestPauseResumeLifecycle(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"))

	res := p.Apply(&model.Command{Tag: model.TagPauseSymbol, SymbolName: "BTC/USDT"})
	if res.Code != model.CodeSuccess {
		t.Fatalf("pause: %s", res.Message)
	}

	// Paused refuses new orders.
	res = p.Apply(placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeFail {
		t.Errorf("place on paused = %d, want %d", res.Code, model.CodeFail)
	}

	// Paused still allows cancellations.
	res = p.Apply(&model.Command{Tag: model.TagCancelOrder, SymbolName: "BTC/USDT", OrderID: "S1"})
	if res.Code != model.CodeSuccess {
		t.Errorf("cancel on paused: %s", res.Message)
	}
	if res.Order.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want Canceled", res.Order.Status)
	}

	res = p.Apply(&model.Command{Tag: model.TagResumeSymbol, SymbolName: "BTC/USDT"})
	if res.Code != model.CodeSuccess {
		t.Fatalf("resume: %s", res.Message)
	}
	res = p.Apply(placeCmd("B2", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeSuccess {
		t.Errorf("place after resume: %s", res.Message)
	}
}

func TestRemoveSymbolCancelsResting(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"))
	p.Apply(placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "49000", "1"))

	res := p.Apply(&model.Command{Tag: model.TagRemoveSymbol, SymbolName: "BTC/USDT"})
	if res.Code != model.CodeSuccess {
		t.Fatalf("remove: %s", res.Message)
	}
	if len(res.Canceled) != 2 {
		t.Fatalf("canceled = %d, want 2", len(res.Canceled))
	}
	for _, o := range res.Canceled {
		if o.Status != model.OrderStatusCanceled {
			t.Errorf("order %s status = %s, want Canceled", o.OrderID, o.Status)
		}
	}

	// Stopped is terminal: the symbol is gone from routing.
	res = p.Apply(placeCmd("B2", model.SideBuy, model.TimeInForceGTC, "50000", "1"))
	if res.Code != model.CodeFail {
		t.Errorf("place after remove = %d, want %d", res.Code, model.CodeFail)
	}

	// Evicted orders remain queryable through the history window.
	o, err := p.QueryOrder("BTC/USDT", "S1")
	if err != nil {
		t.Fatalf("query after remove: %v", err)
	}
	if o.Status != model.OrderStatusCanceled {
		t.Errorf("status = %s, want Canceled", o.Status)
	}
}

func TestUpdateSymbolKeepsStatusAndBook(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"))
	p.Apply(&model.Command{Tag: model.TagPauseSymbol, SymbolName: "BTC/USDT"})

	updated := btcSymbol()
	updated.MaxQuantity = dec("2000")
	res := p.Apply(&model.Command{Tag: model.TagUpdateSymbol, ApplyTime: 5, Symbol: updated})
	if res.Code != model.CodeSuccess {
		t.Fatalf("update: %s", res.Message)
	}

	// The resting order survived and the paused status stuck.
	if _, err := p.QueryOrder("BTC/USDT", "S1"); err != nil {
		t.Errorf("resting order lost on update: %v", err)
	}
	if got := p.ListSymbols()[0]; got.Status != model.SymbolStatusPaused {
		t.Errorf("status = %s, want Paused", got.Status)
	}
	if !p.ListSymbols()[0].MaxQuantity.Equal(dec("2000")) {
		t.Error("updated limit not applied")
	}
}

func TestQueryOrderStates(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	p.Apply(placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "2"))
	p.Apply(placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "50000", "0.5"))

	// Resting partially filled order comes from the book.
	o, err := p.QueryOrder("BTC/USDT", "S1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if o.Status != model.OrderStatusPartiallyFilled || !o.RemainingQuantity.Equal(dec("1.5")) {
		t.Errorf("S1 = %s remaining %s", o.Status, o.RemainingQuantity)
	}

	// Filled taker comes from history.
	o, err = p.QueryOrder("BTC/USDT", "B1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if o.Status != model.OrderStatusFilled {
		t.Errorf("B1 status = %s, want Filled", o.Status)
	}

	if _, err := p.QueryOrder("BTC/USDT", "nope"); err == nil {
		t.Error("expected OrderNotFound for unknown id")
	}
}

func TestHistoryRetentionEvicts(t *testing.T) {
	p := New(2, nil)
	createSymbol(t, p)

	// Three IOC orders with no liquidity terminate immediately.
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("I%d", i)
		res := p.Apply(placeCmd(id, model.SideBuy, model.TimeInForceIOC, "50000", "1"))
		if res.Code != model.CodeSuccess {
			t.Fatalf("place %s: %s", id, res.Message)
		}
	}

	if _, err := p.QueryOrder("BTC/USDT", "I1"); err == nil {
		t.Error("I1 should be evicted from the history window")
	}
	if _, err := p.QueryOrder("BTC/USDT", "I3"); err != nil {
		t.Errorf("I3 should still be queryable: %v", err)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	p := New(0, nil)
	createSymbol(t, p)

	res := p.Apply(&model.Command{Tag: model.TagCancelOrder, SymbolName: "BTC/USDT", OrderID: "missing"})
	if res.Code != model.CodeFail {
		t.Errorf("code = %d, want %d", res.Code, model.CodeFail)
	}
}

func commandStream() []*model.Command {
	cmds := []*model.Command{
		{Tag: model.TagCreateSymbol, ApplyTime: 1, Symbol: btcSymbol()},
	}
	cmds = append(cmds,
		placeCmd("S1", model.SideSell, model.TimeInForceGTC, "50000", "1"),
		placeCmd("S2", model.SideSell, model.TimeInForceGTC, "50100", "2"),
		placeCmd("B1", model.SideBuy, model.TimeInForceGTC, "50100", "1.5"),
		placeCmd("B2", model.SideBuy, model.TimeInForceIOC, "50100", "3"),
		&model.Command{Tag: model.TagCancelOrder, ApplyTime: 9, SymbolName: "BTC/USDT", OrderID: "B2"},
		placeCmd("B3", model.SideBuy, model.TimeInForceGTC, "49000", "0.2"),
	)
	return cmds
}

// Two replicas applying the same log arrive at byte-identical
// snapshots and the same trade sequence.
func TestDeterministicReplay(t *testing.T) {
	a := New(0, nil)
	b := New(0, nil)

	var tradesA, tradesB []uint64
	for _, cmd := range commandStream() {
		for _, tr := range a.Apply(cmd).Trades {
			tradesA = append(tradesA, tr.TradeID)
		}
	}
	for _, cmd := range commandStream() {
		for _, tr := range b.Apply(cmd).Trades {
			tradesB = append(tradesB, tr.TradeID)
		}
	}

	if len(tradesA) == 0 {
		t.Fatal("stream produced no trades, test is vacuous")
	}
	if len(tradesA) != len(tradesB) {
		t.Fatalf("trade counts differ: %d vs %d", len(tradesA), len(tradesB))
	}
	for i := range tradesA {
		if tradesA[i] != tradesB[i] {
			t.Fatalf("trade id %d differs: %d vs %d", i, tradesA[i], tradesB[i])
		}
	}

	if !bytes.Equal(a.Snapshot(), b.Snapshot()) {
		t.Error("replicas must produce byte-identical snapshots")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	p := New(0, nil)
	for _, cmd := range commandStream() {
		p.Apply(cmd)
	}
	snap := p.Snapshot()

	restored := New(0, nil)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !bytes.Equal(snap, restored.Snapshot()) {
		t.Error("restore(snapshot(S)) must equal S")
	}

	// The restored replica continues identically.
	next := placeCmd("B9", model.SideBuy, model.TimeInForceGTC, "50100", "0.7")
	resA := p.Apply(next)
	resB := restored.Apply(next)
	if len(resA.Trades) != len(resB.Trades) {
		t.Fatalf("diverged after restore: %d vs %d trades", len(resA.Trades), len(resB.Trades))
	}
	for i := range resA.Trades {
		if resA.Trades[i].TradeID != resB.Trades[i].TradeID ||
			!resA.Trades[i].Quantity.Equal(resB.Trades[i].Quantity) {
			t.Fatalf("trade %d diverged after restore", i)
		}
	}
	if !bytes.Equal(p.Snapshot(), restored.Snapshot()) {
		t.Error("states diverged after post-restore apply")
	}
}

func TestRestoreRejectsBadVersion(t *testing.T) {
	p := New(0, nil)
	w := model.NewWriter()
	w.U32(99)
	if err := p.Restore(w.Bytes()); err == nil {
		t.Error("expected error for unsupported snapshot version")
	}
}
