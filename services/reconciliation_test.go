package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

// fakeBookingStore is an in-memory BookingStore with the same
// compare-and-swap semantics as the Postgres repository.
type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	writes   int // successful status writes
}

func newFakeBookingStore(bookings ...*models.Booking) *fakeBookingStore {
	s := &fakeBookingStore{bookings: map[string]*models.Booking{}}
	for _, b := range bookings {
		s.bookings[b.OrderRef] = b
	}
	return s
}

func (s *fakeBookingStore) GetByOrderRef(_ context.Context, orderRef string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[orderRef]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeBookingStore) UpdateStatus(_ context.Context, bookingID uint, expected, next models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == bookingID {
			if b.Status != expected || !expected.CanTransition(next) {
				return ErrStatusConflict
			}
			b.Status = next
			s.writes++
			return nil
		}
	}
	return assert.AnError
}

func (s *fakeBookingStore) MarkReviewEligible(_ context.Context, bookingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == bookingID {
			b.ReviewEligible = true
			return nil
		}
	}
	return assert.AnError
}

func (s *fakeBookingStore) status(orderRef string) models.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[orderRef].Status
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[[2]string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[[2]string]bool{}}
}

func (l *fakeLedger) TryClaim(_ context.Context, orderRef, statusCode string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := [2]string{orderRef, statusCode}
	if l.entries[key] {
		return false, nil
	}
	l.entries[key] = true
	return true, nil
}

func (l *fakeLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []BookingPaidEvent
}

func (p *fakePublisher) PublishBookingPaid(_ context.Context, booking *models.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, BookingPaidEvent{BookingID: booking.ID, OrderRef: booking.OrderRef})
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.PaymentAuditLog
}

func (a *fakeAudit) Record(_ context.Context, entry models.PaymentAuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *fakeAudit) outcomes() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := map[string]int{}
	for _, e := range a.entries {
		out[e.Outcome]++
	}
	return out
}

func newTestReconciler(store *fakeBookingStore, ledger *fakeLedger, publisher *fakePublisher, audit *fakeAudit) *ReconciliationService {
	return NewReconciliationService(testSigner(), store, ledger, publisher, audit)
}

func TestReconcileSuccess(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	ledger := newFakeLedger()
	publisher := &fakePublisher{}
	audit := &fakeAudit{}
	recon := newTestReconciler(store, ledger, publisher, audit)

	ack := recon.Reconcile(context.Background(), successNotification(testSigner(), booking))

	require.True(t, ack.Processed)
	assert.False(t, ack.Replay)
	assert.Equal(t, models.BookingPaid, store.status("ORDER-1"))
	assert.True(t, store.bookings["ORDER-1"].ReviewEligible)
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, 1, ledger.size())
}

func TestReconcileFailureOutcome(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	publisher := &fakePublisher{}
	recon := newTestReconciler(store, newFakeLedger(), publisher, &fakeAudit{})

	n := successNotification(testSigner(), booking)
	n.StatusCode = StatusCodeFailed

	ack := recon.Reconcile(context.Background(), n)

	require.True(t, ack.Processed)
	assert.Equal(t, models.BookingFailed, store.status("ORDER-1"))
	assert.False(t, store.bookings["ORDER-1"].ReviewEligible)
	assert.Empty(t, publisher.events, "failed payments must not emit booking.paid")
}

func TestReconcileReplayIsNoOp(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	ledger := newFakeLedger()
	publisher := &fakePublisher{}
	audit := &fakeAudit{}
	recon := newTestReconciler(store, ledger, publisher, audit)

	n := successNotification(testSigner(), booking)

	first := recon.Reconcile(context.Background(), n)
	require.True(t, first.Processed)
	require.False(t, first.Replay)

	// The gateway retries the identical delivery a few times.
	for i := 0; i < 5; i++ {
		// Signature still verifies: the booking is PAID with the same
		// outcome, a legitimate duplicate.
		ack := recon.Reconcile(context.Background(), n)
		require.True(t, ack.Processed)
		require.True(t, ack.Replay)
	}

	assert.Equal(t, 1, store.writes, "retries must not re-run the state machine")
	assert.Equal(t, 1, ledger.size())
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, 5, audit.outcomes()["replay"])
}

func TestReconcileConflictingOutcomeRejected(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	recon := newTestReconciler(store, newFakeLedger(), &fakePublisher{}, &fakeAudit{})

	n := successNotification(testSigner(), booking)
	require.True(t, recon.Reconcile(context.Background(), n).Processed)

	failed := successNotification(testSigner(), booking)
	failed.StatusCode = StatusCodeFailed

	ack := recon.Reconcile(context.Background(), failed)
	require.False(t, ack.Processed)
	assert.Equal(t, RejectConflictingOutcome, ack.Reason)
	assert.Equal(t, models.BookingPaid, store.status("ORDER-1"), "status must remain PAID")
}

func TestReconcileUnknownOrder(t *testing.T) {
	store := newFakeBookingStore()
	ledger := newFakeLedger()
	audit := &fakeAudit{}
	recon := newTestReconciler(store, ledger, &fakePublisher{}, audit)

	n := Notification{OrderRef: "ORDER-MISSING", StatusCode: StatusCodeSuccess, Amount: "100.00", Signature: "X"}
	ack := recon.Reconcile(context.Background(), n)

	require.False(t, ack.Processed)
	assert.Equal(t, RejectUnknownOrder, ack.Reason)
	assert.Equal(t, 0, ledger.size(), "rejections must not write the ledger")
	assert.Equal(t, 1, audit.outcomes()["rejected"])
}

// unavailableBookingStore simulates an infrastructure outage on the read
// path.
type unavailableBookingStore struct {
	*fakeBookingStore
}

func (s *unavailableBookingStore) GetByOrderRef(context.Context, string) (*models.Booking, error) {
	return nil, assert.AnError
}

func TestReconcileStoreOutageIsRetriable(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := &unavailableBookingStore{fakeBookingStore: newFakeBookingStore(booking)}
	ledger := newFakeLedger()
	audit := &fakeAudit{}
	recon := NewReconciliationService(testSigner(), store, ledger, &fakePublisher{}, audit)

	ack := recon.Reconcile(context.Background(), successNotification(testSigner(), booking))

	require.False(t, ack.Processed)
	assert.Equal(t, RejectInternal, ack.Reason, "an outage is not an unknown order")
	assert.Equal(t, 0, ledger.size())
	assert.Equal(t, 0, audit.outcomes()["rejected"], "transient failures must not be audited as final rejections")
}

func TestReconcileReleasesOrderLocks(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	recon := newTestReconciler(store, newFakeLedger(), &fakePublisher{}, &fakeAudit{})

	n := successNotification(testSigner(), booking)
	require.True(t, recon.Reconcile(context.Background(), n).Processed)
	require.True(t, recon.Reconcile(context.Background(), n).Replay)

	recon.locksMu.Lock()
	held := len(recon.locks)
	recon.locksMu.Unlock()
	assert.Equal(t, 0, held, "settled orders must not pin lock entries")
}

func TestReconcileRejectionLeavesStateUntouched(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	ledger := newFakeLedger()
	recon := newTestReconciler(store, ledger, &fakePublisher{}, &fakeAudit{})

	n := successNotification(testSigner(), booking)
	n.Signature = "0000000000000000000000000000000"

	ack := recon.Reconcile(context.Background(), n)
	require.False(t, ack.Processed)
	assert.Equal(t, RejectSignatureMismatch, ack.Reason)
	assert.Equal(t, models.BookingPending, store.status("ORDER-1"))
	assert.Equal(t, 0, ledger.size())
}

func TestReconcileConcurrentDuplicates(t *testing.T) {
	booking := pendingBooking()
	booking.ID = 1
	store := newFakeBookingStore(booking)
	ledger := newFakeLedger()
	publisher := &fakePublisher{}
	recon := newTestReconciler(store, ledger, publisher, &fakeAudit{})

	n := successNotification(testSigner(), booking)

	const workers = 16
	var wg sync.WaitGroup
	acks := make([]Ack, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acks[i] = recon.Reconcile(context.Background(), n)
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, ack := range acks {
		require.True(t, ack.Processed)
		if !ack.Replay {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one delivery wins the claim")
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, 1, ledger.size())
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, models.BookingPaid, store.status("ORDER-1"))

	recon.locksMu.Lock()
	held := len(recon.locks)
	recon.locksMu.Unlock()
	assert.Equal(t, 0, held)
}
