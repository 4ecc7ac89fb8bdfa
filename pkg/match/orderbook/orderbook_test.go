package orderbook

import (
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

func restingOrder(id string, side model.Side, price, qty string) *model.Order {
	return &model.Order{
		OrderID:           id,
		AccountID:         "acc-" + id,
		Symbol:            "BTC/USDT",
		Side:              side,
		Type:              model.OrderTypeLimit,
		TimeInForce:       model.TimeInForceGTC,
		Price:             dec(price),
		Quantity:          dec(qty),
		RemainingQuantity: dec(qty),
		Status:            model.OrderStatusNew,
	}
}

func TestInsertAssignsSequence(t *testing.T) {
	b := NewBook("BTC/USDT")
	o1 := restingOrder("S1", model.SideSell, "100", "1")
	o2 := restingOrder("S2", model.SideSell, "100", "1")
	if err := b.Insert(o1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := b.Insert(o2); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if o1.Sequence != 1 || o2.Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", o1.Sequence, o2.Sequence)
	}
	if err := b.Insert(restingOrder("S1", model.SideSell, "101", "1")); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestBestPrices(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("B1", model.SideBuy, "99", "1"))
	b.Insert(restingOrder("B2", model.SideBuy, "100", "1"))
	b.Insert(restingOrder("S1", model.SideSell, "102", "1"))
	b.Insert(restingOrder("S2", model.SideSell, "101", "1"))

	bid, ok := b.BestBid()
	if !ok || !bid.Equal(dec("100")) {
		t.Errorf("best bid = %s, want 100", bid)
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Equal(dec("101")) {
		t.Errorf("best ask = %s, want 101", ask)
	}
}

func TestHeadOfIsOldestAtLevel(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("S1", model.SideSell, "100", "1"))
	b.Insert(restingOrder("S2", model.SideSell, "100", "1"))

	head, ok := b.HeadOf(model.SideSell, dec("100"))
	if !ok || head.OrderID != "S1" {
		t.Errorf("head = %+v, want S1", head)
	}
}

func TestReduceRemovesExhaustedOrder(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("S1", model.SideSell, "100", "2"))

	if err := b.Reduce("S1", dec("0.5")); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	o, ok := b.Get("S1")
	if !ok || !o.RemainingQuantity.Equal(dec("1.5")) {
		t.Errorf("remaining = %s, want 1.5", o.RemainingQuantity)
	}

	if err := b.Reduce("S1", dec("1.5")); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if _, ok := b.Get("S1"); ok {
		t.Error("exhausted order must leave the book")
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("book must be empty")
	}
}

func TestCancelRemovesMidQueue(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("S1", model.SideSell, "100", "1"))
	b.Insert(restingOrder("S2", model.SideSell, "100", "1"))
	b.Insert(restingOrder("S3", model.SideSell, "100", "1"))

	o, err := b.Cancel("S2")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o.OrderID != "S2" {
		t.Errorf("canceled %s, want S2", o.OrderID)
	}

	var ids []string
	b.Each(model.SideSell, func(o *model.Order) bool {
		ids = append(ids, o.OrderID)
		return true
	})
	if len(ids) != 2 || ids[0] != "S1" || ids[1] != "S3" {
		t.Errorf("queue = %v, want [S1 S3]", ids)
	}

	if _, err := b.Cancel("S2"); err == nil {
		t.Error("expected error canceling an absent order")
	}
}

func TestLadderIterationOrder(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("B1", model.SideBuy, "99", "1"))
	b.Insert(restingOrder("B2", model.SideBuy, "101", "1"))
	b.Insert(restingOrder("B3", model.SideBuy, "100", "1"))
	b.Insert(restingOrder("B4", model.SideBuy, "101", "1"))

	var got []string
	b.Each(model.SideBuy, func(o *model.Order) bool {
		got = append(got, o.OrderID)
		return true
	})
	want := []string{"B2", "B4", "B3", "B1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iteration = %v, want %v", got, want)
		}
	}
}

func TestDepthAggregation(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("S1", model.SideSell, "100", "1"))
	b.Insert(restingOrder("S2", model.SideSell, "100", "2"))
	b.Insert(restingOrder("S3", model.SideSell, "101", "3"))

	_, asks := b.Depth(10)
	if len(asks) != 2 {
		t.Fatalf("ask levels = %d, want 2", len(asks))
	}
	if !asks[0].Price.Equal(dec("100")) || !asks[0].Quantity.Equal(dec("3")) || asks[0].Count != 2 {
		t.Errorf("level 0 = %+v", asks[0])
	}
	if !asks[1].Price.Equal(dec("101")) || !asks[1].Quantity.Equal(dec("3")) {
		t.Errorf("level 1 = %+v", asks[1])
	}
}

func TestBookSnapshotRoundTrip(t *testing.T) {
	b := NewBook("BTC/USDT")
	b.Insert(restingOrder("B1", model.SideBuy, "99", "1"))
	b.Insert(restingOrder("S1", model.SideSell, "101", "2"))
	b.Insert(restingOrder("S2", model.SideSell, "101", "3"))

	w := model.NewWriter()
	b.EncodeTo(w)

	restored, err := DecodeBook("BTC/USDT", model.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeBook: %v", err)
	}
	if restored.Len() != 3 || restored.Sequence() != b.Sequence() {
		t.Fatalf("restored len=%d seq=%d", restored.Len(), restored.Sequence())
	}

	w2 := model.NewWriter()
	restored.EncodeTo(w2)
	if string(w.Bytes()) != string(w2.Bytes()) {
		t.Error("snapshot must round-trip byte-identically")
	}

	head, ok := restored.HeadOf(model.SideSell, dec("101"))
	if !ok || head.OrderID != "S1" {
		t.Errorf("restored head = %+v, want S1", head)
	}
}
