package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/notify"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
)

// memStore is an in-memory BookingTx runner. A unit of work holds the store
// lock for its whole duration and works on a copy that replaces the live
// state only on commit.
type memStore struct {
	mu       sync.Mutex
	premises map[int64]domain.Premise
	bookings map[int64]domain.Booking
	nextID   int64

	commitErr error
}

func newMemStore(premises ...domain.Premise) *memStore {
	s := &memStore{
		premises: map[int64]domain.Premise{},
		bookings: map[int64]domain.Booking{},
		nextID:   1,
	}
	for _, p := range premises {
		s.premises[p.ID] = p
	}
	return s
}

func (s *memStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		premises: make(map[int64]domain.Premise, len(s.premises)),
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		nextID:   s.nextID,
	}
	for k, v := range s.premises {
		tx.premises[k] = v
	}
	for k, v := range s.bookings {
		tx.bookings[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.commitErr != nil {
		return fmt.Errorf("commit: %w", s.commitErr)
	}

	s.premises, s.bookings, s.nextID = tx.premises, tx.bookings, tx.nextID

	return nil
}

func (s *memStore) premise(id int64) domain.Premise {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premises[id]
}

func (s *memStore) booking(id int64) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) countBookings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) ListByUser(_ context.Context, userID int64, status domain.BookingStatus) ([]domain.BookingWithPremise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.BookingWithPremise{}
	for _, b := range s.bookings {
		if b.UserID != userID || (status != "" && b.Status != status) {
			continue
		}
		out = append(out, domain.BookingWithPremise{Booking: b, Premise: s.premises[b.PremiseID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

func (s *memStore) GetForUser(_ context.Context, bookingID, userID int64) (*domain.BookingWithPremise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}

	return &domain.BookingWithPremise{Booking: b, Premise: s.premises[b.PremiseID]}, nil
}

type memTx struct {
	premises map[int64]domain.Premise
	bookings map[int64]domain.Booking
	nextID   int64
}

func (t *memTx) LockPremise(_ context.Context, premiseID int64) (*domain.Premise, error) {
	p, ok := t.premises[premiseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (t *memTx) TakeSlot(_ context.Context, premiseID int64) error {
	p := t.premises[premiseID]
	if p.Available <= 0 {
		return repository.ErrInventoryExhausted
	}
	p.Available--
	t.premises[premiseID] = p
	return nil
}

func (t *memTx) ReleaseSlot(_ context.Context, premiseID int64) error {
	p := t.premises[premiseID]
	if p.Available >= p.Total {
		return repository.ErrInventoryOverflow
	}
	p.Available++
	t.premises[premiseID] = p
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, b domain.Booking) (int64, error) {
	b.ID = t.nextID
	t.nextID++
	t.bookings[b.ID] = b
	return b.ID, nil
}

func (t *memTx) TransitionBooking(
	_ context.Context,
	bookingID, userID int64,
	from, to domain.BookingStatus,
) (int64, error) {
	b, ok := t.bookings[bookingID]
	if !ok || b.UserID != userID || b.Status != from {
		return 0, repository.ErrNotFound
	}
	b.Status = to
	t.bookings[bookingID] = b
	return b.PremiseID, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []int64
	err    error
}

func (n *recordingNotifier) BookingCreated(_ context.Context, ev notify.BookingCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev.BookingID)
	return n.err
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *recordingCache) InvalidatePremise(_ context.Context, premiseID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, premiseID)
	return nil
}
