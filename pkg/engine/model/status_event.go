package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusEvent is the ephemeral progress notification pushed to whatever
// sink is currently bound to the order. Optional fields are pointers so
// they stay off the wire for events that do not carry them.
type StatusEvent struct {
	OrderID       string           `json:"orderId"`
	Status        OrderStatus      `json:"status"`
	Message       string           `json:"message"`
	TxHash        string           `json:"txHash,omitempty"`
	ExecutedPrice *decimal.Decimal `json:"executedPrice,omitempty"`
	AmountOut     *decimal.Decimal `json:"amountOut,omitempty"`
	Error         string           `json:"error,omitempty"`
}

func NewEventPending(orderID string) *StatusEvent {
	return &StatusEvent{
		OrderID: orderID,
		Status:  OrderStatusPending,
		Message: "Order received, status stream connected.",
	}
}

func NewEventRouting(orderID string) *StatusEvent {
	return &StatusEvent{
		OrderID: orderID,
		Status:  OrderStatusRouting,
		Message: "Comparing venue prices...",
	}
}

func NewEventBuilding(orderID, venue string) *StatusEvent {
	return &StatusEvent{
		OrderID: orderID,
		Status:  OrderStatusBuilding,
		Message: fmt.Sprintf("Best price found on %s. Building transaction...", venue),
	}
}

func NewEventSubmitted(orderID, venue, txHash string) *StatusEvent {
	return &StatusEvent{
		OrderID: orderID,
		Status:  OrderStatusSubmitted,
		Message: fmt.Sprintf("Transaction submitted to %s. Waiting for confirmation...", venue),
		TxHash:  txHash,
	}
}

func NewEventConfirmed(orderID string, result *ExecutionResult) *StatusEvent {
	price := result.ExecutedPrice
	amountOut := result.AmountOut
	return &StatusEvent{
		OrderID:       orderID,
		Status:        OrderStatusConfirmed,
		Message:       "Transaction confirmed!",
		TxHash:        result.TxHash,
		ExecutedPrice: &price,
		AmountOut:     &amountOut,
	}
}

func NewEventFailed(orderID string, err error) *StatusEvent {
	return &StatusEvent{
		OrderID: orderID,
		Status:  OrderStatusFailed,
		Message: "An error occurred during execution.",
		Error:   err.Error(),
	}
}
