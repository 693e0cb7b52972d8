package repo

import (
	"context"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

type IRepo interface {
	OrderRecord() IOrderRecord
}

// IOrderRecord is the durable order outcome store. Both writes are
// idempotent per order id: a record already present for the id makes the
// call a no-op, which keeps queue redelivery after a crash safe.
type IOrderRecord interface {
	CreateConfirmed(ctx context.Context, order *model.Order, result *model.ExecutionResult) error
	CreateFailed(ctx context.Context, order *model.Order, execErr error) error
	GetByOrderID(ctx context.Context, orderID string) (*model.OrderRecord, error)
}
