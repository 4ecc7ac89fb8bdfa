package orderbook

import "errors"

var (
	errOrderNotFound  = errors.New("order not found in book")
	errDuplicateOrder = errors.New("order id already in book")
)
