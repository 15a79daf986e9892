package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/notify"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/uow"
)

// PremiseCache drops cached premise views after inventory changes.
type PremiseCache interface {
	InvalidatePremise(ctx context.Context, premiseID int64) error
}

type Config struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	uow      *uow.UoW[repository.BookingTx]
	reader   repository.BookingReader
	cache    PremiseCache
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New builds the booking state machine. cache and notifier may be nil.
func New(
	runner uow.Runner[repository.BookingTx],
	reader repository.BookingReader,
	cache PremiseCache,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		uow:      uow.New(runner),
		reader:   reader,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("letspark/booking"),
		now:      cfg.Now,
	}
}

type CreateInput struct {
	PremiseID int64
	Name      string
	Phone     string
	Duration  int
}

func (in *CreateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)

	var verr ValidationError
	if in.PremiseID <= 0 {
		verr.add("premise_id", "is required")
	}
	if in.Name == "" {
		verr.add("name", "is required")
	}
	if in.Phone == "" {
		verr.add("phone", "is required")
	}
	if in.Duration < 1 {
		verr.add("duration", "must be at least 1 hour")
	}

	return verr.orNil()
}

// Create books one slot of a premise for userID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the authenticated caller.
//   - in: premise, contact details and duration in hours.
//
// Returns:
//   - *domain.BookingWithPremise: the confirmed booking and the premise as of commit.
//   - error: booking.ErrValidation if the input is incomplete.
//   - error: booking.ErrPremiseNotFound if the premise does not exist.
//   - error: booking.ErrInventoryExhausted if the premise has no free slot.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (_ *domain.BookingWithPremise, err error) {
	const op = "service.booking.Create"

	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("premise.id", in.PremiseID),
	))
	defer func() { endSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out domain.BookingWithPremise

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.BookingTx,
		after func(uow.AfterCommit),
	) error {
		p, err := tx.LockPremise(ctx, in.PremiseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPremiseNotFound
			}
			return err
		}

		if !p.HasCapacity() {
			return ErrInventoryExhausted
		}

		if err := tx.TakeSlot(ctx, p.ID); err != nil {
			if errors.Is(err, repository.ErrInventoryExhausted) {
				return ErrInventoryExhausted
			}
			return err
		}
		p.Available--

		b := domain.NewBooking(userID, *p, in.Name, in.Phone, in.Duration, s.now().UTC())

		id, err := tx.InsertBooking(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id

		out = domain.BookingWithPremise{Booking: b, Premise: *p}

		after(func(ctx context.Context) {
			s.afterCreate(ctx, out)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("booking created",
		"booking_id", out.ID,
		"premise_id", out.PremiseID,
		"user_id", userID,
		"total_price", out.TotalPrice,
	)

	return &out, nil
}

// Cancel moves a confirmed booking of userID to cancelled and frees its slot.
//
// Returns:
//   - error: booking.ErrNotFoundOrNotEligible if the booking is missing,
//     owned by someone else or no longer confirmed.
func (s *Service) Cancel(ctx context.Context, userID, bookingID int64) (domain.BookingStatus, error) {
	return s.release(ctx, "service.booking.Cancel", userID, bookingID, domain.BookingCancelled)
}

// Complete moves a confirmed booking of userID to completed and frees its slot.
func (s *Service) Complete(ctx context.Context, userID, bookingID int64) (domain.BookingStatus, error) {
	return s.release(ctx, "service.booking.Complete", userID, bookingID, domain.BookingCompleted)
}

func (s *Service) release(
	ctx context.Context,
	op string,
	userID, bookingID int64,
	to domain.BookingStatus,
) (_ domain.BookingStatus, err error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("booking.id", bookingID),
		attribute.String("booking.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if !domain.CanTransition(domain.BookingConfirmed, to) {
		return "", fmt.Errorf("%s: illegal target status %q", op, to)
	}

	var premiseID int64

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.BookingTx,
		after func(uow.AfterCommit),
	) error {
		pid, err := tx.TransitionBooking(ctx, bookingID, userID, domain.BookingConfirmed, to)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFoundOrNotEligible
			}
			return err
		}

		if err := tx.ReleaseSlot(ctx, pid); err != nil {
			if errors.Is(err, repository.ErrInventoryOverflow) {
				s.logger.Error("inventory already full on release, rolling back",
					"op", op,
					"booking_id", bookingID,
					"premise_id", pid,
				)
			}
			return err
		}

		premiseID = pid

		after(func(ctx context.Context) {
			s.invalidate(ctx, op, pid)
		})

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("booking released",
		"booking_id", bookingID,
		"premise_id", premiseID,
		"user_id", userID,
		"status", to,
	)

	return to, nil
}

// List returns the bookings of userID, newest first. status may be empty;
// a status no booking can have matches nothing.
func (s *Service) List(ctx context.Context, userID int64, status string) ([]domain.BookingWithPremise, error) {
	const op = "service.booking.List"

	st := domain.BookingStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return []domain.BookingWithPremise{}, nil
	}

	out, err := s.reader.ListByUser(ctx, userID, st)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get returns one booking of userID.
//
// Returns:
//   - error: booking.ErrBookingNotFound if it does not exist or belongs to someone else.
func (s *Service) Get(ctx context.Context, userID, bookingID int64) (*domain.BookingWithPremise, error) {
	const op = "service.booking.Get"

	b, err := s.reader.GetForUser(ctx, bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

func (s *Service) afterCreate(ctx context.Context, b domain.BookingWithPremise) {
	const op = "service.booking.afterCreate"

	ctx = context.WithoutCancel(ctx)

	s.invalidate(ctx, op, b.PremiseID)

	if s.notifier == nil {
		return
	}

	ev := notify.BookingCreated{
		MessageID:       notify.NewMessageID(),
		BookingID:       b.ID,
		UserID:          b.UserID,
		PremiseName:     b.Premise.Name,
		PremiseLocation: b.Premise.Location,
		Phone:           b.Phone,
		Duration:        b.Duration,
		TotalPrice:      b.TotalPrice,
		StartTime:       b.StartTime,
	}

	if err := s.notifier.BookingCreated(ctx, ev); err != nil {
		s.logger.Warn("booking notification failed",
			"op", op,
			"booking_id", b.ID,
			"error", err,
		)
	}
}

func (s *Service) invalidate(ctx context.Context, op string, premiseID int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.InvalidatePremise(context.WithoutCancel(ctx), premiseID); err != nil {
		s.logger.Warn("premise cache invalidation failed",
			"op", op,
			"premise_id", premiseID,
			"error", err,
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
