package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is the durable terminal outcome of an order. Exactly one
// record exists per order id; later writes for the same id are no-ops.
type OrderRecord struct {
	ID            int64           `gorm:"primaryKey" json:"-"`
	OrderID       string          `gorm:"column:order_id;uniqueIndex" json:"orderId"`
	Status        OrderStatus     `gorm:"column:status" json:"status"`
	AssetIn       string          `gorm:"column:asset_in" json:"assetIn"`
	AssetOut      string          `gorm:"column:asset_out" json:"assetOut"`
	AmountIn      decimal.Decimal `gorm:"column:amount_in;type:numeric" json:"amountIn"`
	Venue         string          `gorm:"column:venue" json:"venue,omitempty"`
	TxHash        string          `gorm:"column:tx_hash" json:"txHash,omitempty"`
	ExecutedPrice decimal.Decimal `gorm:"column:executed_price;type:numeric" json:"executedPrice"`
	AmountOut     decimal.Decimal `gorm:"column:amount_out;type:numeric" json:"amountOut"`
	ErrorMessage  string          `gorm:"column:error_message" json:"error,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"createdAt"`
}

func (OrderRecord) TableName() string {
	return "orders"
}

func NewConfirmedRecord(order *Order, result *ExecutionResult) *OrderRecord {
	return &OrderRecord{
		OrderID:       order.OrderID,
		Status:        OrderStatusConfirmed,
		AssetIn:       order.AssetIn,
		AssetOut:      order.AssetOut,
		AmountIn:      order.AmountIn,
		Venue:         result.Venue,
		TxHash:        result.TxHash,
		ExecutedPrice: result.ExecutedPrice,
		AmountOut:     result.AmountOut,
	}
}

func NewFailedRecord(order *Order, execErr error) *OrderRecord {
	return &OrderRecord{
		OrderID:      order.OrderID,
		Status:       OrderStatusFailed,
		AssetIn:      order.AssetIn,
		AssetOut:     order.AssetOut,
		AmountIn:     order.AmountIn,
		ErrorMessage: execErr.Error(),
	}
}
