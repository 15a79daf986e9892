package repository

import (
	"context"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
)

// BookingTx is the set of row operations the booking state machine runs
// inside one unit of work. Implementations must hold the premise row lock
// taken by LockPremise until the unit of work ends.
type BookingTx interface {
	// LockPremise re-reads the premise and locks its row.
	// Returns ErrNotFound if the premise does not exist.
	LockPremise(ctx context.Context, premiseID int64) (*domain.Premise, error)

	// TakeSlot decrements available by one.
	// Returns ErrInventoryExhausted if available is already zero.
	TakeSlot(ctx context.Context, premiseID int64) error

	// ReleaseSlot increments available by one.
	// Returns ErrInventoryOverflow if available already equals total.
	ReleaseSlot(ctx context.Context, premiseID int64) error

	// InsertBooking stores b and returns its new ID.
	InsertBooking(ctx context.Context, b domain.Booking) (int64, error)

	// TransitionBooking moves a booking owned by userID from one status to
	// another and returns its premise ID. Returns ErrNotFound when no
	// booking matches the id, owner and current status.
	TransitionBooking(
		ctx context.Context,
		bookingID, userID int64,
		from, to domain.BookingStatus,
	) (int64, error)
}

type BookingReader interface {
	// ListByUser returns the user's bookings, newest first. An empty status
	// means no filter.
	ListByUser(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.BookingWithPremise, error)
	GetForUser(ctx context.Context, bookingID, userID int64) (*domain.BookingWithPremise, error)
}

type PremiseReader interface {
	GetPremise(ctx context.Context, id int64) (*domain.Premise, error)
	ListPremises(ctx context.Context, limit, offset int) ([]domain.Premise, error)
}

// PaymentLedger persists payment outcomes keyed by provider session ID.
type PaymentLedger interface {
	// UpsertBySession inserts p or overwrites the row with the same session
	// ID in a single statement. created_at of an existing row is kept.
	UpsertBySession(ctx context.Context, p domain.Payment) (*domain.Payment, error)

	// MarkFailed moves a pending row to failed. Reports whether a row changed.
	MarkFailed(ctx context.Context, sessionID string) (bool, error)
}
