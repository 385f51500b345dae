package storage

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

// PaymentAuditRepository appends to the payment audit trail. Writes are
// best-effort: a failed audit insert is logged, never surfaced into the
// reconciliation outcome.
type PaymentAuditRepository struct {
	db *gorm.DB
}

func NewPaymentAuditRepository(db *gorm.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

func (r *PaymentAuditRepository) Record(ctx context.Context, entry models.PaymentAuditLog) {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("payment audit: failed to record %s for order %s: %v", entry.Outcome, entry.OrderRef, err)
	}
}
