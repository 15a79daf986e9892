package httpgin

import (
	"time"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
)

type CreateBookingRequest struct {
	PremiseID int64  `json:"premise_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Duration  int    `json:"duration"`
}

type CheckoutRequest struct {
	PlanID        string `json:"plan_id"`
	BillingPeriod string `json:"billing_period"`
	CustomerEmail string `json:"customer_email"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	PublicKey string `json:"publicKey"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
	Handled  bool `json:"handled"`
}

type BookingResponse struct {
	ID               int64          `json:"id"`
	Premise          domain.Premise `json:"premise"`
	PremiseID        int64          `json:"premise_id"`
	Name             string         `json:"name"`
	Phone            string         `json:"phone"`
	Duration         int            `json:"duration"`
	DisplayDate      string         `json:"display_date"`
	DisplayTimeRange string         `json:"display_time_range"`
	DisplayDuration  string         `json:"display_duration"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	TotalPrice       int64          `json:"total_price"`
	Status           string         `json:"status"`
	BookingTime      string         `json:"booking_time"`
}

func newBookingResponse(b domain.BookingWithPremise, loc *time.Location) BookingResponse {
	p := b.Premise
	if p.Features == nil {
		p.Features = []string{}
	}

	return BookingResponse{
		ID:               b.ID,
		Premise:          p,
		PremiseID:        b.PremiseID,
		Name:             b.Name,
		Phone:            b.Phone,
		Duration:         b.Duration,
		DisplayDate:      b.DisplayDate(loc),
		DisplayTimeRange: b.DisplayTimeRange(loc),
		DisplayDuration:  b.DisplayDuration(),
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		TotalPrice:       b.TotalPrice,
		Status:           string(b.Status),
		BookingTime:      b.BookingTime.In(loc).Format(time.DateTime),
	}
}

func newBookingList(bs []domain.BookingWithPremise, loc *time.Location) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, newBookingResponse(b, loc))
	}
	return out
}

// VerifyResponse mirrors what the frontend success page reads. PaymentID
// is the ledger row id, or the session id when the ledger write failed.
type VerifyResponse struct {
	PaymentID          any     `json:"payment_id"`
	Status             string  `json:"status"`
	PaymentStatus      string  `json:"payment_status"`
	LedgerStatus       string  `json:"ledger_status"`
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	CustomerEmail      string  `json:"customer_email"`
	PlanID             string  `json:"plan_id"`
	BillingPeriod      string  `json:"billing_period"`
	SubscriptionID     string  `json:"subscription_id,omitempty"`
	SubscriptionStatus string  `json:"subscription_status,omitempty"`
	CurrentPeriodEnd   int64   `json:"current_period_end,omitempty"`
	NextBillingDate    string  `json:"next_billing_date,omitempty"`
}

func newVerifyResponse(v *payment.Verification) VerifyResponse {
	resp := VerifyResponse{
		PaymentID:     v.SessionID,
		Status:        "success",
		PaymentStatus: v.PaymentStatus,
		LedgerStatus:  string(v.LedgerStatus),
		Amount:        v.Amount,
		Currency:      v.Currency,
		CustomerEmail: v.CustomerEmail,
		PlanID:        v.PlanID,
		BillingPeriod: v.BillingPeriod,
	}
	if v.LedgerID != nil {
		resp.PaymentID = *v.LedgerID
	}
	if s := v.Subscription; s != nil {
		resp.SubscriptionID = s.ID
		resp.SubscriptionStatus = s.Status
		resp.CurrentPeriodEnd = s.CurrentPeriodEnd
		resp.NextBillingDate = s.NextBillingDate
	}
	return resp
}
