package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

// PaymentLedgerRepository implements services.PaymentLedger on Postgres. The
// claim is a single INSERT riding the composite unique index on
// (order_ref, status_code): ON CONFLICT DO NOTHING turns a duplicate delivery
// into zero affected rows without an error, which is exactly the
// AlreadyApplied signal.
type PaymentLedgerRepository struct {
	db *gorm.DB
}

func NewPaymentLedgerRepository(db *gorm.DB) *PaymentLedgerRepository {
	return &PaymentLedgerRepository{db: db}
}

func (r *PaymentLedgerRepository) TryClaim(ctx context.Context, orderRef, statusCode string) (bool, error) {
	entry := models.PaymentLedgerEntry{OrderRef: orderRef, StatusCode: statusCode}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_ref"}, {Name: "status_code"}},
			DoNothing: true,
		}).
		Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
