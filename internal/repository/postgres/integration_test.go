package postgresrepo_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/postgres"
	postgresrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/postgres"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/booking"
)

// openTestDB connects to LETSPARK_TEST_DATABASE_URL and resets the schema.
// The tests truncate every table, so never point it at real data.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("LETSPARK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LETSPARK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 20})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE bookings, payments, premises RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return pool
}

func seedPremise(t *testing.T, pool *pgxpool.Pool, price string, available, total int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO premises (name, location, latitude, longitude, price, available, total)
		 VALUES ('Central', 'MG Road', 12.97, 77.59, $1, $2, $3) RETURNING id`,
		price, available, total,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed premise: %v", err)
	}
	return id
}

func newBookingService(pool *pgxpool.Pool) *booking.Service {
	store := postgresrepo.NewStore(pool)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return booking.New(store.BookingTx(), store.Bookings(), nil, nil, logger, booking.Config{})
}

func available(t *testing.T, pool *pgxpool.Pool, premiseID int64) int {
	t.Helper()

	p, err := postgresrepo.NewStore(pool).Premises().GetPremise(context.Background(), premiseID)
	if err != nil {
		t.Fatal(err)
	}
	return p.Available
}

func TestIntegrationBookingLifecycle(t *testing.T) {
	pool := openTestDB(t)
	svc := newBookingService(pool)
	ctx := context.Background()
	premiseID := seedPremise(t, pool, "50/hr", 1, 1)

	in := booking.CreateInput{PremiseID: premiseID, Name: "Asha", Phone: "9876543210", Duration: 2}

	b, err := svc.Create(ctx, 1, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.TotalPrice != 100 || b.Status != domain.BookingConfirmed || !b.EndTime.Equal(b.StartTime.Add(2*time.Hour)) {
		t.Fatalf("booking = %+v", b.Booking)
	}
	if got := available(t, pool, premiseID); got != 0 {
		t.Fatalf("available = %d, want 0", got)
	}

	if _, err := svc.Create(ctx, 2, in); !errors.Is(err, booking.ErrInventoryExhausted) {
		t.Fatalf("second Create err = %v, want ErrInventoryExhausted", err)
	}

	if _, err := svc.Cancel(ctx, 2, b.ID); !errors.Is(err, booking.ErrNotFoundOrNotEligible) {
		t.Fatalf("foreign Cancel err = %v", err)
	}
	if _, err := svc.Cancel(ctx, 1, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := available(t, pool, premiseID); got != 1 {
		t.Fatalf("available = %d, want 1", got)
	}
	if _, err := svc.Cancel(ctx, 1, b.ID); !errors.Is(err, booking.ErrNotFoundOrNotEligible) {
		t.Fatalf("second Cancel err = %v", err)
	}

	list, err := svc.List(ctx, 1, "cancelled")
	if err != nil || len(list) != 1 || list[0].Premise.ID != premiseID {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestIntegrationConcurrentCreates(t *testing.T) {
	pool := openTestDB(t)
	svc := newBookingService(pool)
	premiseID := seedPremise(t, pool, "30/hr", 3, 3)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), user, booking.CreateInput{
				PremiseID: premiseID, Name: "n", Phone: "1", Duration: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, booking.ErrInventoryExhausted):
				exhausted++
			default:
				t.Errorf("Create: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if ok != 3 || exhausted != workers-3 {
		t.Fatalf("ok = %d exhausted = %d", ok, exhausted)
	}
	if got := available(t, pool, premiseID); got != 0 {
		t.Fatalf("available = %d, want 0", got)
	}
}

func TestIntegrationLedgerUpsert(t *testing.T) {
	pool := openTestDB(t)
	ledger := postgresrepo.NewStore(pool).Payments()
	ctx := context.Background()

	row := domain.Payment{
		PlanID:          "basic",
		BillingPeriod:   "month",
		AmountPaid:      4.99,
		Currency:        "INR",
		StripeSessionID: "cs_int_1",
		Status:          domain.PaymentPending,
	}

	first, err := ledger.UpsertBySession(ctx, row)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	userID := int64(42)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := "sub_1"
	row.UserID = &userID
	row.Status = domain.PaymentCompleted
	row.StripeSubscriptionID = &sub
	row.ExpiresAt = &end

	second, err := ledger.UpsertBySession(ctx, row)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID || second.Status != domain.PaymentCompleted || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("second = %+v, first = %+v", second, first)
	}

	var n int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM payments WHERE stripe_session_id = 'cs_int_1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}

	if changed, err := ledger.MarkFailed(ctx, "cs_int_1"); err != nil || changed {
		t.Fatalf("MarkFailed on completed = %v, %v", changed, err)
	}
}
