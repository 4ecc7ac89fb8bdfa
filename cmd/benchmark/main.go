package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/processor"
)

const (
	numOrders = 1_000_000
	minPrice  = 100.0
	maxPrice  = 200.0
	minQty    = 1
	maxQty    = 100
)

func randomOrder(id int) *model.Order {
	side := model.SideBuy
	if rand.Intn(2) == 0 {
		side = model.SideSell
	}
	price := minPrice + rand.Float64()*(maxPrice-minPrice)
	qty := rand.Intn(maxQty-minQty+1) + minQty

	return &model.Order{
		OrderID:     fmt.Sprintf("ORD-%06d", id),
		AccountID:   fmt.Sprintf("ACC-%03d", id%100),
		Symbol:      "ABC/USDT",
		Side:        side,
		Type:        model.OrderTypeLimit,
		TimeInForce: model.TimeInForceGTC,
		Price:       decimal.NewFromFloat(price).Round(2),
		Quantity:    decimal.NewFromInt(int64(qty)),
	}
}

func main() {
	rand.Seed(time.Now().UnixNano())

	proc := processor.New(0, nil)
	res := proc.Apply(&model.Command{
		Tag: model.TagCreateSymbol,
		Symbol: &model.Symbol{
			Name:              "ABC/USDT",
			BaseAsset:         "ABC",
			QuoteAsset:        "USDT",
			PricePrecision:    2,
			QuantityPrecision: 0,
			MinQuantity:       decimal.NewFromInt(1),
			MaxQuantity:       decimal.NewFromInt(1_000_000),
			MinAmount:         decimal.NewFromInt(1),
			MaxAmount:         decimal.NewFromInt(1_000_000_000),
		},
	})
	if res.Code != model.CodeSuccess {
		log.Fatalf("create symbol failed: %s", res.Message)
	}

	totalMatched := 0
	totalQty := decimal.Zero

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		res := proc.Apply(&model.Command{
			Tag:       model.TagPlaceOrder,
			ApplyTime: int64(i),
			Order:     randomOrder(i),
		})
		for _, t := range res.Trades {
			totalMatched++
			totalQty = totalQty.Add(t.Quantity)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("orders: %d\n", numOrders)
	fmt.Printf("trades: %d, total qty: %s\n", totalMatched, totalQty)
	fmt.Printf("elapsed: %s (%.0f orders/sec)\n", elapsed, float64(numOrders)/elapsed.Seconds())
}
