package model

import "github.com/shopspring/decimal"

// Quote is a venue's offer for one execution attempt. Quotes are ephemeral
// and never persisted.
type Quote struct {
	Venue       string
	Price       decimal.Decimal
	Fee         decimal.Decimal
	ExpectedOut decimal.Decimal
}

// ExecutionResult is produced once per successfully executed order.
type ExecutionResult struct {
	Venue         string
	TxHash        string
	ExecutedPrice decimal.Decimal
	AmountOut     decimal.Decimal
}
