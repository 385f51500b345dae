package routes

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"golang.org/x/exp/slices"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/services"
	"github.com/prabhashwara07/IntelliStay-sub001/storage"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

type CreateBookingInput struct {
	RoomID    uint      `json:"roomID" validate:"required"`
	CheckIn   time.Time `json:"checkIn" validate:"required"`
	CheckOut  time.Time `json:"checkOut" validate:"required"`
	NumGuests int       `json:"numGuests" validate:"required,gte=1,lte=16"`
}

// CheckoutPayload is everything the client embeds in the gateway redirect.
// The digest authorizes exactly this (order, amount, currency) tuple; the
// client never sees the secret or any way to derive it.
type CheckoutPayload struct {
	MerchantID string `json:"merchantId"`
	OrderRef   string `json:"orderId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Signature  string `json:"hash"`
}

// CreateBooking accepts a reservation request, prices it server-side and
// returns the PENDING booking together with its signed checkout payload.
func CreateBooking(ctx iris.Context) {
	params := ctx.Params()
	hotelID := params.Get("id")

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !input.CheckIn.Before(input.CheckOut) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "checkIn must be before checkOut", ctx)
		return
	}

	var hotel models.Hotel
	if err := storage.DB.First(&hotel, hotelID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Hotel not found", ctx)
		return
	}

	var room models.Room
	if err := storage.DB.Where("id = ? AND hotel_id = ?", input.RoomID, hotel.ID).First(&room).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Room not found for this hotel", ctx)
		return
	}

	if input.NumGuests > room.Sleeps {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Guest count exceeds room capacity", ctx)
		return
	}

	// Total is computed here and fixed for the life of the booking. The
	// reconciliation path never touches it.
	nights := int(input.CheckOut.Sub(input.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	totalAmount := room.NightlyPrice * float64(nights)

	booking := models.Booking{
		OrderRef:    "IS-" + uuid.NewString(),
		HotelID:     hotel.ID,
		RoomID:      room.ID,
		GuestID:     claims.ID,
		CheckIn:     input.CheckIn,
		CheckOut:    input.CheckOut,
		NumGuests:   input.NumGuests,
		TotalAmount: totalAmount,
		Currency:    room.Currency,
		Status:      models.BookingPending,
	}

	if err := storage.DB.Create(&booking).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"booking":  booking,
		"checkout": checkoutPayloadFor(&booking),
	})
}

// GetBookingCheckout re-issues the signed checkout payload for a PENDING
// booking, e.g. after the payer abandoned the first redirect.
func GetBookingCheckout(ctx iris.Context) {
	params := ctx.Params()
	orderRef := params.Get("orderRef")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var booking models.Booking
	if err := storage.DB.Where("order_ref = ?", orderRef).First(&booking).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.GuestID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if booking.Status != models.BookingPending {
		utils.CreateError(iris.StatusConflict, "Conflict", "Booking is no longer payable", ctx)
		return
	}

	ctx.JSON(checkoutPayloadFor(&booking))
}

var listableStatuses = []string{
	string(models.BookingPending),
	string(models.BookingPaid),
	string(models.BookingFailed),
	string(models.BookingCancelled),
}

func GetUserBookings(ctx iris.Context) {
	params := ctx.Params()
	userID := params.Get("id")

	query := storage.DB.Preload("Hotel").Preload("Room").Where("guest_id = ?", userID)

	if status := ctx.URLParamDefault("status", ""); status != "" {
		if !slices.Contains(listableStatuses, status) {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Unknown booking status filter", ctx)
			return
		}
		query = query.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := query.Order("created_at DESC").Find(&bookings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(bookings)
}

// GetHostBookings returns bookings for all hotels owned by the authenticated
// host.
func GetHostBookings(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var bookings []models.Booking
	res := storage.DB.
		Joins("JOIN hotels h ON h.id = bookings.hotel_id").
		Where("h.host_id = ?", claims.ID).
		Preload("Hotel").
		Preload("Room").
		Preload("Guest").
		Order("bookings.created_at DESC").
		Find(&bookings)

	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(bookings)
}

// CancelBooking moves a PENDING booking to CANCELLED through the same
// compare-and-swap the reconciliation path uses. A booking that already got
// paid or failed cannot be cancelled here.
func CancelBooking(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var booking models.Booking
	if err := storage.DB.First(&booking, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if booking.GuestID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	err := bookingStore.UpdateStatus(ctx.Request().Context(), booking.ID, models.BookingPending, models.BookingCancelled)
	if errors.Is(err, services.ErrStatusConflict) {
		utils.CreateError(iris.StatusConflict, "Conflict", "Booking is not cancellable in its current state", ctx)
		return
	}
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	booking.Status = models.BookingCancelled
	ctx.JSON(booking)
}

func checkoutPayloadFor(booking *models.Booking) CheckoutPayload {
	return CheckoutPayload{
		MerchantID: paymentSigner.MerchantID(),
		OrderRef:   booking.OrderRef,
		Amount:     services.FormatAmount(booking.TotalAmount),
		Currency:   booking.Currency,
		Signature:  paymentSigner.Sign(booking.OrderRef, booking.TotalAmount, booking.Currency),
	}
}
