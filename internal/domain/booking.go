package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PricePerHour extracts the hourly rate from a free-text price descriptor
// such as "50/hr" or "₹50/hr": the decimal digits found before the first
// '/' are parsed as an integer.
//
// An unparsable descriptor yields 0 and ok=false. Callers price the booking
// at zero instead of rejecting it.
func PricePerHour(descriptor string) (rate int64, ok bool) {
	head, _, _ := strings.Cut(descriptor, "/")

	var digits strings.Builder
	for _, r := range head {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	if digits.Len() == 0 {
		return 0, false
	}

	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// NewBooking derives the time window and total price of a booking created
// at now against premise p.
func NewBooking(userID int64, p Premise, name, phone string, duration int, now time.Time) Booking {
	rate, _ := PricePerHour(p.Price)

	return Booking{
		UserID:      userID,
		PremiseID:   p.ID,
		Name:        name,
		Phone:       phone,
		Duration:    duration,
		BookingTime: now,
		StartTime:   now,
		EndTime:     now.Add(time.Duration(duration) * time.Hour),
		TotalPrice:  rate * int64(duration),
		Status:      BookingConfirmed,
	}
}

func (b Booking) DisplayDate(loc *time.Location) string {
	return b.StartTime.In(loc).Format("2006-01-02")
}

func (b Booking) DisplayTimeRange(loc *time.Location) string {
	return fmt.Sprintf("%s - %s", b.StartTime.In(loc).Format("15:04"), b.EndTime.In(loc).Format("15:04"))
}

func (b Booking) DisplayDuration() string {
	if b.Duration == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", b.Duration)
}
