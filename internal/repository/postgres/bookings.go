package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
)

type BookingRepo struct {
	pool Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// LockPremise re-reads a premise and takes its row lock for the rest of the
// transaction. Outside a transaction the lock is released immediately.
//
// Returns:
//   - *domain.Premise: the current premise row.
//   - error: repository.ErrNotFound if the premise is not found.
func (r *BookingRepo) LockPremise(ctx context.Context, premiseID int64) (*domain.Premise, error) {
	const op = "postgresrepo.BookingRepo.LockPremise"

	p, err := scanPremise(r.handle().QueryRow(ctx,
		`SELECT `+premiseColumns+`
		 FROM premises WHERE id = $1
		 FOR UPDATE`,
		premiseID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// TakeSlot consumes one available slot.
//
// Returns:
//   - error: repository.ErrInventoryExhausted if no slot is left.
func (r *BookingRepo) TakeSlot(ctx context.Context, premiseID int64) error {
	const op = "postgresrepo.BookingRepo.TakeSlot"

	tag, err := r.handle().Exec(ctx,
		`UPDATE premises
		 SET available = available - 1
		 WHERE id = $1 AND available > 0`,
		premiseID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrInventoryExhausted)
	}

	return nil
}

// ReleaseSlot returns one slot to the premise.
//
// Returns:
//   - error: repository.ErrInventoryOverflow if available already equals total.
func (r *BookingRepo) ReleaseSlot(ctx context.Context, premiseID int64) error {
	const op = "postgresrepo.BookingRepo.ReleaseSlot"

	tag, err := r.handle().Exec(ctx,
		`UPDATE premises
		 SET available = available + 1
		 WHERE id = $1 AND available < total`,
		premiseID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrInventoryOverflow)
	}

	return nil
}

func (r *BookingRepo) InsertBooking(ctx context.Context, b domain.Booking) (int64, error) {
	const op = "postgresrepo.BookingRepo.InsertBooking"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings(
			user_id, premise_id, name, phone, duration,
			booking_time, start_time, end_time, total_price, status
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		b.UserID, b.PremiseID, b.Name, b.Phone, b.Duration,
		b.BookingTime, b.StartTime, b.EndTime, b.TotalPrice, string(b.Status),
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// TransitionBooking moves a booking between statuses. The status guard in
// the WHERE clause makes a concurrent second transition of the same booking
// wait for the first and then match nothing.
//
// Returns:
//   - int64: the premise the booking belongs to.
//   - error: repository.ErrNotFound if no booking matches id, owner and status.
func (r *BookingRepo) TransitionBooking(
	ctx context.Context,
	bookingID, userID int64,
	from, to domain.BookingStatus,
) (int64, error) {
	const op = "postgresrepo.BookingRepo.TransitionBooking"

	var premiseID int64
	if err := r.handle().QueryRow(ctx,
		`UPDATE bookings
		 SET status = $4
		 WHERE id = $1 AND user_id = $2 AND status = $3
		 RETURNING premise_id`,
		bookingID, userID, string(from), string(to),
	).Scan(&premiseID); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return premiseID, nil
}

const bookingWithPremiseSelect = `SELECT
	b.id, b.user_id, b.premise_id, b.name, b.phone, b.duration,
	b.booking_time, b.start_time, b.end_time, b.total_price, b.status,
	p.id, p.name, p.location, p.latitude, p.longitude, p.image, p.price,
	p.available, p.total, p.features, p.rating, p.description
 FROM bookings b
 JOIN premises p ON p.id = b.premise_id`

// ListByUser lists a user's bookings joined with their premise, newest
// first. An empty status lists every booking.
func (r *BookingRepo) ListByUser(
	ctx context.Context,
	userID int64,
	status domain.BookingStatus,
) ([]domain.BookingWithPremise, error) {
	const op = "postgresrepo.BookingRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		bookingWithPremiseSelect+`
		 WHERE b.user_id = $1 AND ($2::text = '' OR b.status = $2::text)
		 ORDER BY b.booking_time DESC, b.id DESC`,
		userID, string(status),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.BookingWithPremise{}
	for rows.Next() {
		bp, err := scanBookingWithPremise(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *bp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetForUser retrieves one booking of a user joined with its premise.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist or belongs to someone else.
func (r *BookingRepo) GetForUser(ctx context.Context, bookingID, userID int64) (*domain.BookingWithPremise, error) {
	const op = "postgresrepo.BookingRepo.GetForUser"

	bp, err := scanBookingWithPremise(r.handle().QueryRow(ctx,
		bookingWithPremiseSelect+`
		 WHERE b.id = $1 AND b.user_id = $2`,
		bookingID, userID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return bp, nil
}

func scanBookingWithPremise(row pgx.Row) (*domain.BookingWithPremise, error) {
	var out domain.BookingWithPremise
	var status string

	if err := row.Scan(
		&out.ID,
		&out.UserID,
		&out.PremiseID,
		&out.Name,
		&out.Phone,
		&out.Duration,
		&out.BookingTime,
		&out.StartTime,
		&out.EndTime,
		&out.TotalPrice,
		&status,
		&out.Premise.ID,
		&out.Premise.Name,
		&out.Premise.Location,
		&out.Premise.Latitude,
		&out.Premise.Longitude,
		&out.Premise.Image,
		&out.Premise.Price,
		&out.Premise.Available,
		&out.Premise.Total,
		&out.Premise.Features,
		&out.Premise.Rating,
		&out.Premise.Description,
	); err != nil {
		return nil, err
	}

	out.Status = domain.BookingStatus(status)
	if out.Premise.Features == nil {
		out.Premise.Features = []string{}
	}

	return &out, nil
}
