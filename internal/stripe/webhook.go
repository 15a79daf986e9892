package stripecli

import (
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
)

// ParseWebhook verifies the Stripe-Signature header against the endpoint
// secret and extracts the checkout session the event is about.
func (c *Client) ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	const op = "stripecli.Client.ParseWebhook"

	if c.webhookSecret == "" {
		return payment.WebhookEvent{}, fmt.Errorf("%s:%w: webhook secret not configured", op, payment.ErrInvalidWebhook)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return payment.WebhookEvent{}, fmt.Errorf("%s:%w: %v", op, payment.ErrInvalidWebhook, err)
	}

	out := payment.WebhookEvent{ID: ev.ID, Type: string(ev.Type)}

	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return payment.WebhookEvent{}, fmt.Errorf("%s:%w: %v", op, payment.ErrInvalidWebhook, err)
		}
		out.SessionID = s.ID
	}

	return out, nil
}
