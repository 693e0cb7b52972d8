package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusRouting   OrderStatus = "routing"
	OrderStatusBuilding  OrderStatus = "building"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
)

var (
	errMissingOrderID = errors.New("missing order id")
	errMissingAsset   = errors.New("missing asset symbol")
	errInvalidAmount  = errors.New("amount in must be positive")
)

// Order is immutable once created; the queue carries it as the job payload.
type Order struct {
	OrderID  string          `json:"orderId"`
	AssetIn  string          `json:"assetIn"`
	AssetOut string          `json:"assetOut"`
	AmountIn decimal.Decimal `json:"amountIn"`
}

func NewOrder(orderID, assetIn, assetOut string, amountIn decimal.Decimal) (*Order, error) {
	order := &Order{
		OrderID:  orderID,
		AssetIn:  assetIn,
		AssetOut: assetOut,
		AmountIn: amountIn,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func (o *Order) Validate() error {
	if o.OrderID == "" {
		return errMissingOrderID
	}
	if o.AssetIn == "" || o.AssetOut == "" {
		return errMissingAsset
	}
	if !o.AmountIn.IsPositive() {
		return errInvalidAmount
	}
	return nil
}
