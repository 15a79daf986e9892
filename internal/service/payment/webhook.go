package payment

import (
	"context"
	"fmt"
)

const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed  = "checkout.session.async_payment_failed"
)

// WebhookEvent is a verified provider notification about a checkout session.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
}

// HandleWebhook reconciles the ledger for a provider notification. Event
// types it does not know are acknowledged and ignored.
//
// Unlike VerifyPayment, a ledger write failure is an error here: the
// provider redelivers the event only when it is not acknowledged.
//
// Returns:
//   - bool: whether the ledger changed.
//   - error: payment.ErrLedgerWrite if the session could not be recorded.
func (s *Service) HandleWebhook(ctx context.Context, ev WebhookEvent) (bool, error) {
	const op = "service.payment.HandleWebhook"

	switch ev.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentSuccess:
		if err := s.record(ctx, ev.SessionID); err != nil {
			return false, fmt.Errorf("%s:%w", op, err)
		}
		return true, nil

	case EventCheckoutAsyncPaymentFailed:
		// the failure may be the first we hear of the session
		if err := s.record(ctx, ev.SessionID); err != nil {
			return false, fmt.Errorf("%s:%w", op, err)
		}
		changed, err := s.MarkFailed(ctx, ev.SessionID)
		if err != nil {
			return false, fmt.Errorf("%s:%w", op, err)
		}
		return changed, nil

	default:
		s.logger.Debug("ignore webhook event", "event_id", ev.ID, "type", ev.Type)
		return false, nil
	}
}

// record writes the provider's current view of the session to the ledger.
func (s *Service) record(ctx context.Context, sessionID string) error {
	v, err := s.VerifyPayment(ctx, sessionID, nil)
	if err != nil {
		return err
	}
	if v.LedgerID == nil {
		return fmt.Errorf("%w: session %s", ErrLedgerWrite, v.SessionID)
	}
	return nil
}
