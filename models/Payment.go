package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentLedgerEntry records that a given gateway outcome has been applied to
// a booking. The composite unique index makes the claim atomic: the first
// INSERT for an (order_ref, status_code) pair wins, every later one conflicts
// and is detected as a duplicate delivery. Entries live as long as the
// booking does.
type PaymentLedgerEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OrderRef   string    `json:"orderRef" gorm:"type:varchar(64);not null;index:ux_payment_ledger_order_status,unique,priority:1"`
	StatusCode string    `json:"statusCode" gorm:"type:varchar(8);not null;index:ux_payment_ledger_order_status,unique,priority:2"`
	AppliedAt  time.Time `json:"appliedAt" gorm:"autoCreateTime"`
}

// PaymentAuditLog is the append-only trail of every gateway notification the
// server saw, accepted or not. Rejections land here instead of mutating state.
type PaymentAuditLog struct {
	gorm.Model
	OrderRef   string         `json:"orderRef" gorm:"type:varchar(64);index"`
	StatusCode string         `json:"statusCode" gorm:"type:varchar(8)"`
	Outcome    string         `json:"outcome" gorm:"type:varchar(20);index"` // applied, replay, noop, rejected
	Reason     string         `json:"reason" gorm:"type:varchar(40)"`        // rejection reason, empty on success
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb"`             // notification fields minus the signature
}
