package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/repository"
)

// Provider is the external payment provider.
type Provider interface {
	// CreateCheckoutSession opens a subscription checkout and returns its ID.
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error)

	// GetCheckoutSession fetches the current session state with its
	// subscription and customer expanded. Unknown sessions yield
	// ErrSessionNotFound.
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.ProviderSession, error)
}

type Config struct {
	PublicKey   string
	FrontendURL string
	// Timeout bounds every provider call. Defaults to 15s.
	Timeout time.Duration
}

type Service struct {
	provider Provider
	ledger   repository.PaymentLedger
	catalog  PlanCatalog
	logger   *slog.Logger
	tracer   trace.Tracer

	publicKey string
	baseURL   string
	timeout   time.Duration
}

func New(
	provider Provider,
	ledger repository.PaymentLedger,
	catalog PlanCatalog,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Service{
		provider:  provider,
		ledger:    ledger,
		catalog:   catalog,
		logger:    logger,
		tracer:    otel.Tracer("letspark/payment"),
		publicKey: cfg.PublicKey,
		baseURL:   NormalizeBaseURL(cfg.FrontendURL),
		timeout:   cfg.Timeout,
	}
}

type CheckoutInput struct {
	PlanID        string
	BillingPeriod string
	CustomerEmail string
	// UserID is the authenticated caller, if any.
	UserID *int64
}

type CheckoutResult struct {
	SessionID string
	PublicKey string
}

// CreateCheckoutSession opens a subscription checkout for a plan. Nothing is
// written to the ledger until the session is verified.
//
// Returns:
//   - error: payment.ErrValidation listing missing fields.
//   - error: payment.ErrInvalidPlan if no price is configured for the plan and period.
//   - error: *payment.ProviderError if the provider rejects the request.
func (s *Service) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (_ *CheckoutResult, err error) {
	const op = "service.payment.CreateCheckoutSession"

	in.PlanID = strings.TrimSpace(in.PlanID)
	in.BillingPeriod = strings.TrimSpace(in.BillingPeriod)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)

	var missing []string
	if in.PlanID == "" {
		missing = append(missing, "plan_id")
	}
	if in.BillingPeriod == "" {
		missing = append(missing, "billing_period")
	}
	if in.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s:%w", op, &ValidationError{Missing: missing})
	}

	priceID, ok := s.catalog.PriceID(in.PlanID, in.BillingPeriod)
	if !ok {
		s.logger.Warn("unknown price key", "op", op, "key", PlanKey(in.PlanID, in.BillingPeriod))
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPlan)
	}

	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("plan.key", PlanKey(in.PlanID, in.BillingPeriod)),
	))
	defer func() { endSpan(span, err) }()

	metadata := map[string]string{
		"plan_id":        in.PlanID,
		"billing_period": in.BillingPeriod,
		"customer_email": in.CustomerEmail,
	}
	if in.UserID != nil {
		metadata["user_id"] = strconv.FormatInt(*in.UserID, 10)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sessionID, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		PriceID:       priceID,
		CustomerEmail: in.CustomerEmail,
		SuccessURL:    s.baseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/pricing",
		Metadata:      metadata,
		SubscriptionMetadata: map[string]string{
			"plan_id":        in.PlanID,
			"billing_period": in.BillingPeriod,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, asProviderError(err))
	}

	s.logger.Info("checkout session created",
		"session_id", sessionID,
		"plan", PlanKey(in.PlanID, in.BillingPeriod),
	)

	return &CheckoutResult{SessionID: sessionID, PublicKey: s.publicKey}, nil
}

type SubscriptionInfo struct {
	ID               string
	Status           string
	CurrentPeriodEnd int64
	NextBillingDate  string
}

// Verification is the caller-visible outcome of VerifyPayment.
type Verification struct {
	// LedgerID is nil when the ledger write failed.
	LedgerID      *int64
	SessionID     string
	PaymentStatus string
	LedgerStatus  domain.PaymentStatus
	Amount        float64
	Currency      string
	CustomerEmail string
	PlanID        string
	BillingPeriod string
	Subscription  *SubscriptionInfo
}

// VerifyPayment reads the authoritative session state from the provider
// and records it in the ledger. It may be called any number of times for
// the same session: each call overwrites the ledger row with what the
// provider reports now.
//
// Parameters:
//   - sessionID: provider checkout session ID.
//   - caller: the authenticated user, if any. Falls back to the user_id
//     stored in session metadata.
//
// Returns:
//   - error: payment.ErrValidation if sessionID is empty.
//   - error: payment.ErrSessionNotFound if the provider does not know the session.
//   - error: *payment.ProviderError for other provider failures.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string, caller *int64) (_ *Verification, err error) {
	const op = "service.payment.VerifyPayment"

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%s:%w", op, &ValidationError{Missing: []string{"session_id"}})
	}

	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("payment.session_id", sessionID),
	))
	defer func() { endSpan(span, err) }()

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.provider.GetCheckoutSession(pctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return nil, fmt.Errorf("%s:%w", op, asProviderError(err))
	}

	v := &Verification{
		SessionID:     sess.ID,
		PaymentStatus: sess.PaymentStatus,
		LedgerStatus:  domain.PaymentPending,
		Amount:        float64(sess.AmountTotal) / 100,
		Currency:      strings.ToUpper(sess.Currency),
		CustomerEmail: sess.CustomerEmail,
		PlanID:        sess.Metadata["plan_id"],
		BillingPeriod: sess.Metadata["billing_period"],
	}
	if v.SessionID == "" {
		v.SessionID = sessionID
	}
	if sess.Paid() {
		v.LedgerStatus = domain.PaymentCompleted
	}

	row := domain.Payment{
		UserID:          resolveUser(caller, sess.Metadata),
		PlanID:          v.PlanID,
		BillingPeriod:   v.BillingPeriod,
		AmountPaid:      v.Amount,
		Currency:        v.Currency,
		StripeSessionID: v.SessionID,
		Status:          v.LedgerStatus,
	}
	if sess.PaymentIntent != "" {
		pi := sess.PaymentIntent
		row.StripePaymentIntentID = &pi
	}

	if sub := sess.Subscription; sub != nil {
		status := sub.Status
		if status == "" {
			status = "active"
		}

		v.Subscription = &SubscriptionInfo{ID: sub.ID, Status: status}

		subID := sub.ID
		row.StripeSubscriptionID = &subID

		if sub.CurrentPeriodEnd > 0 {
			end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			v.Subscription.CurrentPeriodEnd = sub.CurrentPeriodEnd
			v.Subscription.NextBillingDate = end.Format(time.DateTime)
			row.ExpiresAt = &end
		}
	}

	saved, err := s.ledger.UpsertBySession(ctx, row)
	if err != nil {
		s.logger.Error("payment ledger write failed",
			"op", op,
			"session_id", v.SessionID,
			"error", err,
		)
		return v, nil
	}

	v.LedgerID = &saved.ID

	s.logger.Info("payment verified",
		"session_id", v.SessionID,
		"payment_id", saved.ID,
		"status", v.LedgerStatus,
	)

	return v, nil
}

// MarkFailed records an asynchronous payment failure. Rows that are absent
// or no longer pending are left untouched.
func (s *Service) MarkFailed(ctx context.Context, sessionID string) (bool, error) {
	const op = "service.payment.MarkFailed"

	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("%s:%w", op, &ValidationError{Missing: []string{"session_id"}})
	}

	changed, err := s.ledger.MarkFailed(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("payment marked failed", "session_id", sessionID, "changed", changed)

	return changed, nil
}

func resolveUser(caller *int64, metadata map[string]string) *int64 {
	if caller != nil {
		id := *caller
		return &id
	}

	raw := strings.TrimSpace(metadata["user_id"])
	if raw == "" {
		return nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}

	return &id
}

// asProviderError keeps provider errors as they are and classifies context
// expiry as an unavailable provider.
func asProviderError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{
			Kind:    ProviderUnavailable,
			Message: "could not connect to payment service",
			Err:     err,
		}
	}

	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
