package services

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
)

const bookingEventsExchange = "intellistay.bookings"

// BookingPaidEvent is the payload published when a booking reaches PAID.
// Consumers (guest notifications, host dashboards) live outside this server.
type BookingPaidEvent struct {
	BookingID uint    `json:"booking_id"`
	OrderRef  string  `json:"order_ref"`
	HotelID   uint    `json:"hotel_id"`
	GuestID   uint    `json:"guest_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// RabbitPublisher emits booking domain events on a topic exchange.
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(bookingEventsExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) PublishBookingPaid(ctx context.Context, booking *models.Booking) error {
	body, err := json.Marshal(BookingPaidEvent{
		BookingID: booking.ID,
		OrderRef:  booking.OrderRef,
		HotelID:   booking.HotelID,
		GuestID:   booking.GuestID,
		Amount:    booking.TotalAmount,
		Currency:  booking.Currency,
	})
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, bookingEventsExchange, "booking.paid", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
