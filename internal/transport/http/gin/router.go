package httpgin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/booking"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/premises"
)

type BookingService interface {
	Create(ctx context.Context, userID int64, in booking.CreateInput) (*domain.BookingWithPremise, error)
	Cancel(ctx context.Context, userID, bookingID int64) (domain.BookingStatus, error)
	Complete(ctx context.Context, userID, bookingID int64) (domain.BookingStatus, error)
	List(ctx context.Context, userID int64, status string) ([]domain.BookingWithPremise, error)
	Get(ctx context.Context, userID, bookingID int64) (*domain.BookingWithPremise, error)
}

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutResult, error)
	VerifyPayment(ctx context.Context, sessionID string, caller *int64) (*payment.Verification, error)
	HandleWebhook(ctx context.Context, ev payment.WebhookEvent) (bool, error)
}

type PremiseService interface {
	Get(ctx context.Context, id int64) (*domain.Premise, error)
	List(ctx context.Context, limit, offset int) ([]domain.Premise, error)
}

// WebhookParser authenticates a raw provider webhook.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

type Services struct {
	Bookings BookingService
	Payments PaymentService
	Premises PremiseService
	// Webhooks may be nil, which leaves the webhook route unregistered.
	Webhooks WebhookParser
}

type RouterConfig struct {
	// Location renders booking display fields. Defaults to UTC.
	Location *time.Location
}

type handler struct {
	svcs   Services
	loc    *time.Location
	logger *slog.Logger
}

func NewRouter(
	svcs Services,
	tokens TokenParser,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	h := &handler{svcs: svcs, loc: cfg.Location, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	})

	r.GET("/premises", h.listPremises)
	r.GET("/premises/:id", h.getPremise)

	authed := r.Group("/", Auth(tokens, true))
	{
		authed.POST("/bookings", Idempotency(idem, logger), h.createBooking)
		authed.GET("/bookings", h.listBookings)
		authed.GET("/user-bookings", h.listBookings)
		authed.GET("/bookings/:id", h.getBooking)
		authed.POST("/bookings/:id/cancel", h.cancelBooking)
		authed.POST("/bookings/:id/complete", h.completeBooking)
	}

	optional := r.Group("/", Auth(tokens, false))
	{
		optional.POST("/payments/checkout", h.createCheckout)
		optional.POST("/create-checkout-session", h.createCheckout)
		optional.GET("/payments/verify", h.verifyPayment)
		optional.GET("/verify-payment", h.verifyPayment)
	}

	if svcs.Webhooks != nil {
		r.POST("/payments/webhook", h.stripeWebhook)
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		bookingValidation *booking.ValidationError
		paymentValidation *payment.ValidationError
		providerErr       *payment.ProviderError
	)

	switch {
	// validation
	case errors.As(err, &bookingValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: bookingValidation.Fields})
	case errors.As(err, &paymentValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: paymentValidation.Error()})

	// booking service
	case errors.Is(err, booking.ErrInventoryExhausted):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no available slots at this premise"})
	case errors.Is(err, booking.ErrPremiseNotFound), errors.Is(err, premises.ErrPremiseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "premise not found"})
	case errors.Is(err, booking.ErrNotFoundOrNotEligible):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found or not eligible"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})

	// payment service
	case errors.Is(err, payment.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid plan or billing period combination"})
	case errors.Is(err, payment.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid payment session ID"})
	case errors.Is(err, payment.ErrInvalidWebhook):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid webhook"})
	case errors.As(err, &providerErr):
		respondProviderErr(c, providerErr)

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func respondProviderErr(c *gin.Context, err *payment.ProviderError) {
	switch err.Kind {
	case payment.ProviderMisconfigured:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Message})
	case payment.ProviderUnavailable:
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Message})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "payment processing error: " + err.Message})
	}
}
