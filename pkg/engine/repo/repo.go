package repo

import (
	"gorm.io/gorm"
)

type Repo struct {
	orderDB *gorm.DB
}

func NewRepo(orderDB *gorm.DB) IRepo {
	return &Repo{
		orderDB: orderDB,
	}
}

func (r *Repo) OrderRecord() IOrderRecord {
	return NewOrderRecordSQLRepo(r.orderDB)
}
