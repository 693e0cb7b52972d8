package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

type OrderRecordSQLRepo struct {
	db *gorm.DB
}

func NewOrderRecordSQLRepo(db *gorm.DB) *OrderRecordSQLRepo {
	return &OrderRecordSQLRepo{
		db: db,
	}
}

func (s *OrderRecordSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *OrderRecordSQLRepo) CreateConfirmed(ctx context.Context, order *model.Order, result *model.ExecutionResult) error {
	return s.insertOnce(ctx, model.NewConfirmedRecord(order, result))
}

func (s *OrderRecordSQLRepo) CreateFailed(ctx context.Context, order *model.Order, execErr error) error {
	return s.insertOnce(ctx, model.NewFailedRecord(order, execErr))
}

func (s *OrderRecordSQLRepo) GetByOrderID(ctx context.Context, orderID string) (*model.OrderRecord, error) {
	record := &model.OrderRecord{}
	err := s.dbWithContext(ctx).Where("order_id = ?", orderID).First(record).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

// insertOnce keeps only the first terminal record per order id.
func (s *OrderRecordSQLRepo) insertOnce(ctx context.Context, record *model.OrderRecord) error {
	return s.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(record).Error
}
