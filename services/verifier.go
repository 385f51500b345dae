package services

import (
	"crypto/subtle"
	"math"
	"strconv"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

// Gateway status codes carried in notifications. Binary outcome only;
// anything else is treated as malformed.
const (
	StatusCodeSuccess = "2"
	StatusCodeFailed  = "-2"
)

// amountTolerance absorbs decimal formatting drift between what the gateway
// reports and what the booking stored. Anything beyond it is a mismatch.
const amountTolerance = 0.01

// Notification is the inbound gateway callback, untrusted until verified.
// Only its (order ref, status code) pair outlives verification, as the ledger
// key.
type Notification struct {
	MerchantID string `json:"merchant_id"`
	OrderRef   string `json:"order_id"`
	Amount     string `json:"payhere_amount"` // gateway-formatted string
	Currency   string `json:"payhere_currency"`
	StatusCode string `json:"status_code"`
	Signature  string `json:"md5sig"`
}

// RejectReason classifies why a notification was refused. Rejections are
// outcomes, not errors; they never escape the reconciliation boundary as
// panics or raised failures.
type RejectReason string

const (
	RejectMalformed          RejectReason = "malformed_notification"
	RejectUnknownOrder       RejectReason = "unknown_order"
	RejectAmountMismatch     RejectReason = "amount_mismatch"
	RejectSignatureMismatch  RejectReason = "signature_mismatch"
	RejectConflictingOutcome RejectReason = "conflicting_outcome"

	// RejectInternal is not a verification failure: persistence broke while
	// applying. The gateway gets a non-success ack so it retries later.
	RejectInternal RejectReason = "internal_error"
)

// TargetStatus maps a gateway status code onto the booking status it asks
// for. Unknown codes report ok=false.
func TargetStatus(code string) (models.BookingStatus, bool) {
	switch code {
	case StatusCodeSuccess:
		return models.BookingPaid, true
	case StatusCodeFailed:
		return models.BookingFailed, true
	}
	return "", false
}

// Verification is the result of accepting a notification against a booking.
type Verification struct {
	Target models.BookingStatus

	// Duplicate means the booking already sits at Target. That is a legal
	// gateway retry and the ledger short-circuits it downstream.
	Duplicate bool
}

// VerifyNotification checks an inbound callback against the stored booking.
// The digest is recomputed from the booking's recorded amount and currency,
// never from the payload's own figures: the network payload must not be the
// basis of its own verification. Pure computation, no state change.
func (s *Signer) VerifyNotification(n Notification, booking *models.Booking) (Verification, RejectReason, bool) {
	target, ok := TargetStatus(n.StatusCode)
	if !ok {
		return Verification{}, RejectMalformed, false
	}

	reported, err := strconv.ParseFloat(n.Amount, 64)
	if err != nil {
		return Verification{}, RejectMalformed, false
	}
	if math.Abs(reported-booking.TotalAmount) > amountTolerance {
		return Verification{}, RejectAmountMismatch, false
	}

	expected := s.Sign(booking.OrderRef, booking.TotalAmount, booking.Currency)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.Signature)) != 1 {
		return Verification{}, RejectSignatureMismatch, false
	}

	switch {
	case booking.Status == models.BookingPending:
		return Verification{Target: target}, "", true
	case booking.Status == target:
		return Verification{Target: target, Duplicate: true}, "", true
	default:
		// Already PAID and told it failed, or vice versa. Also covers
		// notifications arriving for a cancelled booking.
		return Verification{}, RejectConflictingOutcome, false
	}
}
