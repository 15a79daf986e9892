// Package notify delivers best-effort booking notifications. Nothing here
// may affect the outcome of the booking that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RKBookingCreated = "booking.created"

// BookingCreated carries enough of a booking for the confirmation SMS.
type BookingCreated struct {
	MessageID       string    `json:"message_id"`
	BookingID       int64     `json:"booking_id"`
	UserID          int64     `json:"user_id"`
	PremiseName     string    `json:"premise_name"`
	PremiseLocation string    `json:"premise_location"`
	Phone           string    `json:"phone"`
	Duration        int       `json:"duration"`
	TotalPrice      int64     `json:"total_price"`
	StartTime       time.Time `json:"start_time"`
}

// Notifier is informed after a booking has been committed.
type Notifier interface {
	BookingCreated(ctx context.Context, ev BookingCreated) error
}

// NewMessageID stamps an event so consumers can spot redeliveries in logs.
func NewMessageID() string {
	return uuid.NewString()
}

// SMSBody renders the confirmation text. Start time is shown in loc.
func SMSBody(ev BookingCreated, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("Parking Booking Confirmed\n")
	fmt.Fprintf(&b, "Location: %s\n", ev.PremiseName)
	fmt.Fprintf(&b, "Duration: %d hours\n", ev.Duration)
	fmt.Fprintf(&b, "Total: INR %d\n", ev.TotalPrice)
	fmt.Fprintf(&b, "Booking ID: %d\n", ev.BookingID)
	fmt.Fprintf(&b, "Start Time: %s\n", ev.StartTime.In(loc).Format("2006-01-02 15:04"))
	b.WriteString("Thank you for using letsPark!")

	return b.String()
}

// Recipient turns a local phone number into E.164 with the Indian country
// code. Numbers that already carry a '+' are kept.
func Recipient(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}

	return "+91" + phone
}

func decodeBookingCreated(b []byte) (BookingCreated, error) {
	var ev BookingCreated
	if err := json.Unmarshal(b, &ev); err != nil {
		return BookingCreated{}, fmt.Errorf("decode payload failed: %w", err)
	}
	if ev.BookingID == 0 || ev.Phone == "" {
		return BookingCreated{}, fmt.Errorf("decode payload failed: missing booking_id or phone")
	}

	return ev, nil
}
