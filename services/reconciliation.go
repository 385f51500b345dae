package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

// ErrStatusConflict is returned by a BookingStore when the expected-status
// precondition of UpdateStatus failed. Treated as a benign race: the caller
// re-reads and gives up quietly if the booking already sits where it wanted
// it.
var ErrStatusConflict = errors.New("booking status precondition failed")

// ErrBookingNotFound is returned by a BookingStore when no booking carries
// the order ref. Distinct from infrastructure failures: no booking means the
// notification is rejected for good, a broken read means the gateway should
// retry the delivery.
var ErrBookingNotFound = errors.New("booking not found")

// BookingStore is the slice of booking persistence the reconciliation core
// needs. GetByOrderRef reports a missing booking as ErrBookingNotFound.
// UpdateStatus must be an atomic compare-and-swap on the status column; it is
// the only write path for booking status in the whole application.
type BookingStore interface {
	GetByOrderRef(ctx context.Context, orderRef string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uint, expected, next models.BookingStatus) error
	MarkReviewEligible(ctx context.Context, bookingID uint) error
}

// PaymentLedger claims (order ref, status code) outcomes. TryClaim must be
// atomic with respect to concurrent callers of the same pair; exactly one of
// them sees true.
type PaymentLedger interface {
	TryClaim(ctx context.Context, orderRef, statusCode string) (bool, error)
}

// EventPublisher emits domain events for features outside the payment core
// (review eligibility refresh, guest notifications).
type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, booking *models.Booking) error
}

// AuditTrail records every notification outcome, accepted or rejected.
type AuditTrail interface {
	Record(ctx context.Context, entry models.PaymentAuditLog)
}

// Ack is what the webhook endpoint sends back to the gateway. Processed and
// Replay both acknowledge receipt so the gateway stops retrying; a rejection
// carries its reason so gateway-side retry logic treats the delivery as
// unhandled.
type Ack struct {
	Processed bool
	Replay    bool
	Reason    RejectReason
}

// ReconciliationService advances a booking's payment status from gateway
// callbacks: verify, dedupe, transition, emit. It is the sole owner of the
// PENDING -> PAID/FAILED transitions.
type ReconciliationService struct {
	signer    *Signer
	bookings  BookingStore
	ledger    PaymentLedger
	publisher EventPublisher
	audit     AuditTrail

	// Per-booking serialization for the claim+transition critical section.
	// Callbacks for different bookings never contend. Entries are refcounted
	// and dropped once the last holder releases, so the map stays bounded by
	// in-flight work rather than growing with booking history.
	locksMu sync.Mutex
	locks   map[string]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func NewReconciliationService(signer *Signer, bookings BookingStore, ledger PaymentLedger, publisher EventPublisher, audit AuditTrail) *ReconciliationService {
	return &ReconciliationService{
		signer:    signer,
		bookings:  bookings,
		ledger:    ledger,
		publisher: publisher,
		audit:     audit,
		locks:     map[string]*orderLock{},
	}
}

func (r *ReconciliationService) acquire(orderRef string) *orderLock {
	r.locksMu.Lock()
	l, ok := r.locks[orderRef]
	if !ok {
		l = &orderLock{}
		r.locks[orderRef] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (r *ReconciliationService) release(orderRef string, l *orderLock) {
	l.mu.Unlock()

	r.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, orderRef)
	}
	r.locksMu.Unlock()
}

// Reconcile processes one gateway callback end to end. Verification (pure
// hashing) runs outside the per-booking lock; only the claim and the status
// write happen inside it. A retried delivery takes the exact same path until
// the ledger short-circuits it.
func (r *ReconciliationService) Reconcile(ctx context.Context, n Notification) Ack {
	booking, err := r.bookings.GetByOrderRef(ctx, n.OrderRef)
	if errors.Is(err, ErrBookingNotFound) {
		r.record(ctx, n, "rejected", RejectUnknownOrder)
		return Ack{Reason: RejectUnknownOrder}
	}
	if err != nil {
		// Infrastructure, not verification. Ack non-success without an audit
		// rejection so the gateway redelivers once the store recovers.
		log.Printf("payment: loading order %s: %v", n.OrderRef, err)
		return Ack{Reason: RejectInternal}
	}

	verification, reason, ok := r.signer.VerifyNotification(n, booking)
	if !ok {
		r.record(ctx, n, "rejected", reason)
		return Ack{Reason: reason}
	}

	lock := r.acquire(n.OrderRef)
	defer r.release(n.OrderRef, lock)

	claimed, err := r.ledger.TryClaim(ctx, n.OrderRef, n.StatusCode)
	if err != nil {
		log.Printf("payment: ledger claim failed for order %s: %v", n.OrderRef, err)
		return Ack{Reason: RejectInternal}
	}
	if !claimed {
		// Same outcome already applied; the retry is free of side effects.
		r.record(ctx, n, "replay", "")
		return Ack{Processed: true, Replay: true}
	}

	if err := r.apply(ctx, n, booking, verification.Target); err != nil {
		log.Printf("payment: applying %s for order %s: %v", verification.Target, n.OrderRef, err)
		return Ack{Reason: RejectInternal}
	}
	return Ack{Processed: true}
}

// apply performs the single status write of the operation, tolerating the
// expected-status race once by re-reading.
func (r *ReconciliationService) apply(ctx context.Context, n Notification, booking *models.Booking, target models.BookingStatus) error {
	err := r.bookings.UpdateStatus(ctx, booking.ID, models.BookingPending, target)
	if errors.Is(err, ErrStatusConflict) {
		current, readErr := r.bookings.GetByOrderRef(ctx, booking.OrderRef)
		if readErr != nil {
			return readErr
		}
		// A gateway retry or the cancellation path got there first. Retried
		// terminal outcomes are logged no-ops, not errors.
		log.Printf("payment: order %s already %s, ignoring %s transition", booking.OrderRef, current.Status, target)
		r.record(ctx, n, "noop", "")
		return nil
	}
	if err != nil {
		return err
	}

	r.record(ctx, n, "applied", "")

	if target == models.BookingPaid {
		if err := r.bookings.MarkReviewEligible(ctx, booking.ID); err != nil {
			log.Printf("payment: marking order %s review-eligible: %v", booking.OrderRef, err)
		}
		if r.publisher != nil {
			if err := r.publisher.PublishBookingPaid(ctx, booking); err != nil {
				log.Printf("payment: publishing booking.paid for order %s: %v", booking.OrderRef, err)
			}
		}
	}
	return nil
}

func (r *ReconciliationService) record(ctx context.Context, n Notification, outcome string, reason RejectReason) {
	if r.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"merchant_id":      n.MerchantID,
		"order_id":         n.OrderRef,
		"payhere_amount":   n.Amount,
		"payhere_currency": n.Currency,
		"status_code":      n.StatusCode,
	})
	r.audit.Record(ctx, models.PaymentAuditLog{
		OrderRef:   n.OrderRef,
		StatusCode: n.StatusCode,
		Outcome:    outcome,
		Reason:     string(reason),
		Payload:    payload,
	})
}
