package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/kataras/iris/v12"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/services"
)

// memoryBookingStore backs the webhook tests without a database. Setting
// readErr makes every read fail, standing in for a database outage.
type memoryBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	readErr  error
}

func (s *memoryBookingStore) GetByOrderRef(_ context.Context, orderRef string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	b, ok := s.bookings[orderRef]
	if !ok {
		return nil, services.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *memoryBookingStore) UpdateStatus(_ context.Context, bookingID uint, expected, next models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == bookingID {
			if b.Status != expected {
				return services.ErrStatusConflict
			}
			b.Status = next
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memoryBookingStore) MarkReviewEligible(_ context.Context, bookingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == bookingID {
			b.ReviewEligible = true
			return nil
		}
	}
	return errors.New("not found")
}

type memoryLedger struct {
	mu      sync.Mutex
	entries map[string]bool
}

func (l *memoryLedger) TryClaim(_ context.Context, orderRef, statusCode string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := orderRef + "|" + statusCode
	if l.entries[key] {
		return false, nil
	}
	l.entries[key] = true
	return true, nil
}

// buildPaymentTestApp wires the notify endpoint to in-memory collaborators.
func buildPaymentTestApp(t *testing.T, bookings ...*models.Booking) (*iris.Application, *memoryBookingStore, *services.Signer) {
	t.Helper()

	signer := services.NewSigner(&services.GatewayConfig{
		MerchantID:     "1232279",
		MerchantSecret: "S3CR3T",
	})

	store := &memoryBookingStore{bookings: map[string]*models.Booking{}}
	for _, b := range bookings {
		store.bookings[b.OrderRef] = b
	}
	ledger := &memoryLedger{entries: map[string]bool{}}

	recon := services.NewReconciliationService(signer, store, ledger, nil, nil)
	InitPayments(signer, recon, store)

	app := iris.New()
	app.Post("/api/payment/notify", PaymentNotify)
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}
	return app, store, signer
}

func postNotification(app *iris.Application, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func notificationForm(signer *services.Signer, b *models.Booking, statusCode string) url.Values {
	form := url.Values{}
	form.Set("merchant_id", "1232279")
	form.Set("order_id", b.OrderRef)
	form.Set("payhere_amount", services.FormatAmount(b.TotalAmount))
	form.Set("payhere_currency", b.Currency)
	form.Set("status_code", statusCode)
	form.Set("md5sig", signer.Sign(b.OrderRef, b.TotalAmount, b.Currency))
	return form
}

func TestPaymentNotifySuccess(t *testing.T) {
	booking := &models.Booking{
		OrderRef:    "ORDER-1",
		TotalAmount: 100,
		Currency:    "LKR",
		Status:      models.BookingPending,
	}
	booking.ID = 1
	app, store, signer := buildPaymentTestApp(t, booking)

	resp := postNotification(app, notificationForm(signer, booking, services.StatusCodeSuccess))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := store.bookings["ORDER-1"].Status; got != models.BookingPaid {
		t.Fatalf("expected booking PAID, got %s", got)
	}
	if !store.bookings["ORDER-1"].ReviewEligible {
		t.Fatal("paid booking should become review eligible")
	}
}

func TestPaymentNotifyReplay(t *testing.T) {
	booking := &models.Booking{
		OrderRef:    "ORDER-1",
		TotalAmount: 100,
		Currency:    "LKR",
		Status:      models.BookingPending,
	}
	booking.ID = 1
	app, store, signer := buildPaymentTestApp(t, booking)

	form := notificationForm(signer, booking, services.StatusCodeSuccess)
	for i := 0; i < 3; i++ {
		resp := postNotification(app, form)
		if resp.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, resp.Code)
		}
	}
	if got := store.bookings["ORDER-1"].Status; got != models.BookingPaid {
		t.Fatalf("expected booking PAID after replays, got %s", got)
	}
}

func TestPaymentNotifyBadSignature(t *testing.T) {
	booking := &models.Booking{
		OrderRef:    "ORDER-1",
		TotalAmount: 100,
		Currency:    "LKR",
		Status:      models.BookingPending,
	}
	booking.ID = 1
	app, store, signer := buildPaymentTestApp(t, booking)

	form := notificationForm(signer, booking, services.StatusCodeSuccess)
	form.Set("md5sig", "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")

	resp := postNotification(app, form)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for forged signature, got %d", resp.Code)
	}
	if got := store.bookings["ORDER-1"].Status; got != models.BookingPending {
		t.Fatalf("forged notification must not mutate state, booking is %s", got)
	}
}

func TestPaymentNotifyUnknownOrder(t *testing.T) {
	app, _, signer := buildPaymentTestApp(t)

	ghost := &models.Booking{OrderRef: "ORDER-GHOST", TotalAmount: 50, Currency: "LKR"}
	resp := postNotification(app, notificationForm(signer, ghost, services.StatusCodeSuccess))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown order, got %d", resp.Code)
	}
}

func TestPaymentNotifyMissingFields(t *testing.T) {
	app, _, _ := buildPaymentTestApp(t)

	form := url.Values{}
	form.Set("order_id", "ORDER-1")

	resp := postNotification(app, form)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed notification, got %d", resp.Code)
	}
}

func TestPaymentNotifyStoreOutage(t *testing.T) {
	booking := &models.Booking{
		OrderRef:    "ORDER-1",
		TotalAmount: 100,
		Currency:    "LKR",
		Status:      models.BookingPending,
	}
	booking.ID = 1
	app, store, signer := buildPaymentTestApp(t, booking)

	store.mu.Lock()
	store.readErr = errors.New("connection refused")
	store.mu.Unlock()

	resp := postNotification(app, notificationForm(signer, booking, services.StatusCodeSuccess))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 while the store is down, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(services.RejectInternal)) {
		t.Fatalf("expected %s in body, got %s", services.RejectInternal, resp.Body.String())
	}
}

func TestPaymentNotifyConflictingOutcome(t *testing.T) {
	booking := &models.Booking{
		OrderRef:    "ORDER-1",
		TotalAmount: 100,
		Currency:    "LKR",
		Status:      models.BookingPending,
	}
	booking.ID = 1
	app, store, signer := buildPaymentTestApp(t, booking)

	if resp := postNotification(app, notificationForm(signer, booking, services.StatusCodeSuccess)); resp.Code != http.StatusOK {
		t.Fatalf("setup delivery failed: %d", resp.Code)
	}

	resp := postNotification(app, notificationForm(signer, booking, services.StatusCodeFailed))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for conflicting outcome, got %d", resp.Code)
	}
	if got := store.bookings["ORDER-1"].Status; got != models.BookingPaid {
		t.Fatalf("booking must stay PAID, got %s", got)
	}
}
