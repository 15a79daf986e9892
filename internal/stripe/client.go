package stripecli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL overrides the API endpoint. Empty means api.stripe.com.
	BaseURL string
	Timeout time.Duration
}

// Client implements payment.Provider on top of Stripe Checkout.
type Client struct {
	api           *client.API
	webhookSecret string
	logger        *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		LeveledLogger:     &leveledLogger{logger: logger},
		MaxNetworkRetries: stripe.Int64(0),
	}

	apiCfg := *backendCfg
	if cfg.BaseURL != "" {
		apiCfg.URL = stripe.String(cfg.BaseURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, &apiCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	const op = "stripecli.Client.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(req.CustomerEmail),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.SubscriptionMetadata,
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, mapError(err, false))
	}

	return s.ID, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.ProviderSession, error) {
	const op = "stripecli.Client.GetCheckoutSession"

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapError(err, true))
	}

	return toProviderSession(s), nil
}

func toProviderSession(s *stripe.CheckoutSession) *domain.ProviderSession {
	out := &domain.ProviderSession{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}

	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		out.CustomerEmail = s.CustomerDetails.Email
	}

	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}

	if s.Subscription != nil && s.Subscription.ID != "" {
		out.Subscription = &domain.ProviderSubscription{
			ID:               s.Subscription.ID,
			Status:           string(s.Subscription.Status),
			CurrentPeriodEnd: s.Subscription.CurrentPeriodEnd,
		}
	}

	return out
}

// mapError sorts Stripe failures into the payment error taxonomy. lookup
// marks calls that address an existing session, where an invalid request
// means the session is unknown.
func mapError(err error, lookup bool) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return &payment.ProviderError{
			Kind:    payment.ProviderUnavailable,
			Message: "could not connect to payment service",
			Err:     err,
		}
	}

	switch {
	case serr.HTTPStatusCode == http.StatusUnauthorized || serr.HTTPStatusCode == http.StatusForbidden:
		return &payment.ProviderError{
			Kind:    payment.ProviderMisconfigured,
			Message: "payment service configuration error",
			Err:     err,
		}

	case lookup && (serr.Code == stripe.ErrorCodeResourceMissing ||
		serr.HTTPStatusCode == http.StatusNotFound ||
		serr.Type == stripe.ErrorTypeInvalidRequest):
		return fmt.Errorf("%w: %s", payment.ErrSessionNotFound, serr.Msg)

	case serr.HTTPStatusCode == http.StatusTooManyRequests || serr.HTTPStatusCode >= http.StatusInternalServerError:
		return &payment.ProviderError{
			Kind:    payment.ProviderUnavailable,
			Message: "could not connect to payment service",
			Err:     err,
		}

	default:
		msg := serr.Msg
		if msg == "" {
			msg = "payment processing error"
		}
		return &payment.ProviderError{
			Kind:    payment.ProviderRejected,
			Message: msg,
			Err:     err,
		}
	}
}

type leveledLogger struct {
	logger *slog.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
