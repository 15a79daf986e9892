package domain

import (
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is one of the known booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// CanTransition reports whether from -> to is a legal booking transition.
// Only confirmed -> cancelled and confirmed -> completed exist.
func CanTransition(from, to BookingStatus) bool {
	return from == BookingConfirmed && to.Terminal()
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type BillingPeriod string

const (
	BillingMonth BillingPeriod = "month"
	BillingYear  BillingPeriod = "year"
)

type Premise struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Image       *string  `json:"image"`
	Price       string   `json:"price"`
	Available   int      `json:"available"`
	Total       int      `json:"total"`
	Features    []string `json:"features"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
}

// HasCapacity reports whether at least one slot can be booked.
func (p Premise) HasCapacity() bool {
	return p.Available > 0
}

type Booking struct {
	ID          int64
	UserID      int64
	PremiseID   int64
	Name        string
	Phone       string
	Duration    int
	BookingTime time.Time
	StartTime   time.Time
	EndTime     time.Time
	TotalPrice  int64
	Status      BookingStatus
}

type BookingWithPremise struct {
	Booking
	Premise Premise
}

type Payment struct {
	ID                    int64
	UserID                *int64
	PlanID                string
	BillingPeriod         string
	AmountPaid            float64
	Currency              string
	StripeSessionID       string
	StripeSubscriptionID  *string
	StripePaymentIntentID *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ExpiresAt             *time.Time
	Status                PaymentStatus
}

// CheckoutRequest is what the payment provider needs to open a
// subscription checkout session.
type CheckoutRequest struct {
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string

	// SubscriptionMetadata is attached to the subscription the session creates.
	SubscriptionMetadata map[string]string
}

type ProviderSubscription struct {
	ID               string
	Status           string
	CurrentPeriodEnd int64
}

// ProviderSession is the provider's authoritative view of a checkout session.
type ProviderSession struct {
	ID            string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
	PaymentIntent string
	Subscription  *ProviderSubscription
}

// Paid reports whether the provider considers the session settled.
func (s ProviderSession) Paid() bool {
	return s.PaymentStatus == "paid"
}
