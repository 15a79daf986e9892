package domain

import (
	"testing"
	"time"
)

func TestPricePerHour(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"50/hr", 50, true},
		{"₹50/hr", 50, true},
		{"Rs. 120 / hour", 120, true},
		{"40", 40, true},
		{"free", 0, false},
		{"", 0, false},
		{"/hr50", 0, false},
		{"99999999999999999999999/hr", 0, false},
	}

	for _, tt := range tests {
		got, ok := PricePerHour(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PricePerHour(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewBooking(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := Premise{ID: 7, Price: "50/hr", Available: 1, Total: 1}

	b := NewBooking(3, p, "Asha", "9876543210", 2, now)

	if b.TotalPrice != 100 {
		t.Errorf("TotalPrice = %d, want 100", b.TotalPrice)
	}
	if !b.StartTime.Equal(now) || !b.BookingTime.Equal(now) {
		t.Errorf("start/booking time = %v/%v, want %v", b.StartTime, b.BookingTime, now)
	}
	if want := now.Add(2 * time.Hour); !b.EndTime.Equal(want) {
		t.Errorf("EndTime = %v, want %v", b.EndTime, want)
	}
	if b.Status != BookingConfirmed {
		t.Errorf("Status = %q, want confirmed", b.Status)
	}
	if b.PremiseID != 7 || b.UserID != 3 {
		t.Errorf("ids = %d/%d", b.PremiseID, b.UserID)
	}
}

func TestNewBookingUnparsablePriceIsZero(t *testing.T) {
	p := Premise{ID: 1, Price: "call us"}
	b := NewBooking(1, p, "n", "p", 3, time.Now())
	if b.TotalPrice != 0 {
		t.Fatalf("TotalPrice = %d, want 0", b.TotalPrice)
	}
}

func TestCanTransition(t *testing.T) {
	all := []BookingStatus{BookingConfirmed, BookingCancelled, BookingCompleted}
	for _, from := range all {
		for _, to := range all {
			want := from == BookingConfirmed && to != BookingConfirmed
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestDisplayHelpers(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	b := Booking{Duration: 1, StartTime: start, EndTime: start.Add(time.Hour)}

	if got := b.DisplayDate(time.UTC); got != "2026-03-01" {
		t.Errorf("DisplayDate = %q", got)
	}
	if got := b.DisplayTimeRange(time.UTC); got != "09:30 - 10:30" {
		t.Errorf("DisplayTimeRange = %q", got)
	}
	if got := b.DisplayDuration(); got != "1 hour" {
		t.Errorf("DisplayDuration = %q", got)
	}
	b.Duration = 3
	if got := b.DisplayDuration(); got != "3 hours" {
		t.Errorf("DisplayDuration = %q", got)
	}
}
