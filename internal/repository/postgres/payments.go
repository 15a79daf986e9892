package postgresrepo

import (
	"context"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
)

type PaymentRepo struct {
	pool Pool
	db   DB
}

func (r *PaymentRepo) With(db DB) *PaymentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PaymentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// UpsertBySession records the latest provider view of a checkout session.
// Concurrent calls for one session converge on the unique index instead of
// racing a read-then-insert. A known user is never replaced by NULL.
//
// Returns:
//   - *domain.Payment: p with ID, CreatedAt and UpdatedAt filled in.
func (r *PaymentRepo) UpsertBySession(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	const op = "postgresrepo.PaymentRepo.UpsertBySession"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO payments(
			user_id, plan_id, billing_period, amount_paid, currency,
			stripe_session_id, stripe_subscription_id, stripe_payment_intent_id,
			expires_at, status
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (stripe_session_id) DO UPDATE SET
			user_id                  = COALESCE(EXCLUDED.user_id, payments.user_id),
			plan_id                  = EXCLUDED.plan_id,
			billing_period           = EXCLUDED.billing_period,
			amount_paid              = EXCLUDED.amount_paid,
			currency                 = EXCLUDED.currency,
			stripe_subscription_id   = EXCLUDED.stripe_subscription_id,
			stripe_payment_intent_id = EXCLUDED.stripe_payment_intent_id,
			expires_at               = EXCLUDED.expires_at,
			status                   = EXCLUDED.status,
			updated_at               = now()
		 RETURNING id, user_id, created_at, updated_at`,
		p.UserID, p.PlanID, p.BillingPeriod, p.AmountPaid, p.Currency,
		p.StripeSessionID, p.StripeSubscriptionID, p.StripePaymentIntentID,
		p.ExpiresAt, string(p.Status),
	).Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

// MarkFailed flips a pending payment to failed. Completed, refunded and
// already failed rows are left alone.
func (r *PaymentRepo) MarkFailed(ctx context.Context, sessionID string) (bool, error) {
	const op = "postgresrepo.PaymentRepo.MarkFailed"

	tag, err := r.handle().Exec(ctx,
		`UPDATE payments
		 SET status = 'failed', updated_at = now()
		 WHERE stripe_session_id = $1 AND status = 'pending'`,
		sessionID,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() > 0, nil
}
