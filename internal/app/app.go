package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/auth"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/config"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/notify"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/obs"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/postgres"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/redis"
	postgresrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/postgres"
	redisrepo "github.com/sarjanshah14/ParkingSpotFinder/internal/repository/redis"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/booking"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/payment"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/premises"
	stripecli "github.com/sarjanshah14/ParkingSpotFinder/internal/stripe"
	httpgin "github.com/sarjanshah14/ParkingSpotFinder/internal/transport/http/gin"
)

const serviceName = "letspark"

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	pool           *pgxpool.Pool
	rdb            *goredis.Client
	publisher      *notify.Publisher
	direct         *notify.Direct
	shutdownTracer func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.shutdownTracer, err = obs.InitTracer(ctx, obs.Config{
		ServiceName: serviceName,
		Version:     "1.0.0",
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.pool, err = postgres.New(ctx, postgres.Config{DSN: cfg.DSN(), MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, a.pool); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.Info("schema migrated")
	}

	var (
		cache *redisrepo.Cache
		idem  *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		a.rdb, err = redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		cache = redisrepo.NewCache(a.rdb)
		idem = redisrepo.NewIdempotencyStore(a.rdb, cfg.IdempotencyTTL)
	} else {
		logger.Warn("redis disabled, premise cache and idempotency keys are off")
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return nil, err
	}

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, payment calls will fail")
	}
	stripeClient := stripecli.New(stripecli.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		BaseURL:       cfg.Stripe.APIURL,
		Timeout:       cfg.PaymentTimeout,
	}, logger.With("component", "stripe"))

	plans := payment.NewPlanCatalog(cfg.Stripe.Prices())
	logger.Info("payment plans loaded", "count", plans.Len())

	store := postgresrepo.NewStore(a.pool)

	services := service.NewServices(store, cache, stripeClient, notifier, logger, service.Config{
		Booking: booking.Config{},
		Payment: payment.Config{
			PublicKey:   cfg.Stripe.PublicKey,
			FrontendURL: cfg.FrontendURL,
			Timeout:     cfg.PaymentTimeout,
		},
		Premises: premises.Config{},
		Plans:    plans,
	})

	router := httpgin.NewRouter(
		httpgin.Services{
			Bookings: services.Booking,
			Payments: services.Payment,
			Premises: services.Premises,
			Webhooks: stripeClient,
		},
		auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL),
		idem,
		logger,
		httpgin.RouterConfig{Location: cfg.Location()},
		otelgin.Middleware(serviceName),
	)

	a.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newNotifier publishes booking events to RabbitMQ when it is configured
// and otherwise sends the SMS from this process.
func (a *App) newNotifier() (notify.Notifier, error) {
	if a.cfg.RabbitMQ.URL != "" {
		p, err := notify.NewPublisher(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange, a.logger.With("component", "publisher"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rabbitmq publisher: %w", err)
		}
		a.publisher = p
		return p, nil
	}

	a.direct = notify.NewDirect(SMSSender(a.cfg, a.logger), a.logger.With("component", "sms"), a.cfg.NotifyTimeout, a.cfg.Location())
	return a.direct, nil
}

// SMSSender returns the Twilio sender, or a logging stand-in when Twilio
// credentials are absent.
func SMSSender(cfg *config.Config, logger *slog.Logger) notify.Sender {
	if cfg.Twilio.Enabled() {
		return notify.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber, logger)
	}
	logger.Warn("twilio not configured, sms will be logged only")
	return notify.NewLogSender(logger)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)
		a.close(ctx)
		return err
	})

	return g.Wait()
}

func (a *App) close(ctx context.Context) {
	if a.direct != nil {
		a.direct.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("rabbitmq close", "error", err)
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Warn("tracer shutdown", "error", err)
		}
	}
}
