package service

import (
	"log/slog"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/notify"
	postgresrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/postgres"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/booking"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/premises"
)

type Services struct {
	Booking  *booking.Service
	Payment  *payment.Service
	Premises *premises.Service
}

type Config struct {
	Booking  booking.Config
	Payment  payment.Config
	Premises premises.Config
	Plans    payment.PlanCatalog
}

// NewServices wires the services over the Postgres store. cache and
// notifier may be nil.
func NewServices(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	provider payment.Provider,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Services {
	var premiseCache booking.PremiseCache
	if cache != nil {
		premiseCache = cache
	}

	return &Services{
		Booking: booking.New(
			store.BookingTx(),
			store.Bookings(),
			premiseCache,
			notifier,
			logger.With("service", "booking"),
			cfg.Booking,
		),
		Payment: payment.New(
			provider,
			store.Payments(),
			cfg.Plans,
			logger.With("service", "payment"),
			cfg.Payment,
		),
		Premises: premises.New(store.Premises(), cache, cfg.Premises),
	}
}
