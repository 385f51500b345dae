package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the payment lifecycle state of a booking. PAID and FAILED
// are terminal with respect to payment; CANCELLED is reachable only from
// PENDING through the guest cancellation path.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingPaid      BookingStatus = "PAID"
	BookingFailed    BookingStatus = "FAILED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// bookingTransitions is the closed transition table. Anything not listed here
// is illegal; callers never get to invent their own status writes.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingPaid, BookingFailed, BookingCancelled},
}

// CanTransition reports whether s -> to is a legal payment-lifecycle move.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no payment notification may change s anymore.
func (s BookingStatus) Terminal() bool {
	return s == BookingPaid || s == BookingFailed || s == BookingCancelled
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingPaid, BookingFailed, BookingCancelled:
		return true
	}
	return false
}

// Booking models a guest's stay at a hotel. Total amount and currency are
// fixed at creation; the reconciliation path only ever moves Status and the
// review-eligibility flag.
type Booking struct {
	gorm.Model
	OrderRef    string        `json:"orderRef" gorm:"uniqueIndex;not null"` // opaque id the gateway echoes back
	HotelID     uint          `json:"hotelID" gorm:"not null;index"`
	RoomID      uint          `json:"roomID" gorm:"not null;index"`
	GuestID     uint          `json:"guestID" gorm:"not null;index"`
	CheckIn     time.Time     `json:"checkIn"`
	CheckOut    time.Time     `json:"checkOut"`
	NumGuests   int           `json:"numGuests"`
	TotalAmount float64       `json:"totalAmount"`
	Currency    string        `json:"currency" gorm:"type:varchar(3)"`
	Status      BookingStatus `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`

	// Set exactly once, when the PENDING -> PAID transition lands.
	ReviewEligible bool `json:"reviewEligible" gorm:"default:false"`

	Hotel *Hotel `json:"hotel,omitempty" gorm:"foreignKey:HotelID"`
	Room  *Room  `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	Guest *User  `json:"guest,omitempty" gorm:"foreignKey:GuestID"`
}
