package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/config"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/notify"
)

const reconnectDelay = 5 * time.Second

// Notifier is the worker process that turns booking events into SMS.
type Notifier struct {
	cfg      *config.Config
	logger   *slog.Logger
	consumer *notify.Consumer
}

func NewNotifier(cfg *config.Config, logger *slog.Logger) (*Notifier, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, errors.New("RABBITMQ_URL is required for the notifier")
	}

	host, _ := os.Hostname()
	consumer := notify.NewConsumer(notify.ConsumerConfig{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Prefetch: cfg.RabbitMQ.Prefetch,
		Tag:      serviceName + "-notifier-" + host,
		Location: cfg.Location(),
	}, SMSSender(cfg, logger), logger)

	return &Notifier{cfg: cfg, logger: logger, consumer: consumer}, nil
}

// Run consumes until a signal arrives, reconnecting after broker failures.
func (n *Notifier) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			if err := n.consumer.Connect(); err != nil {
				n.logger.Error("rabbitmq connect", "error", err)
			} else {
				n.logger.Info("notifier consuming", "queue", n.cfg.RabbitMQ.Queue)
				if err := n.consumer.Run(gCtx); err != nil {
					n.logger.Error("consume", "error", err)
				}
				n.consumer.Close()
			}

			select {
			case <-gCtx.Done():
				return nil
			case <-time.After(reconnectDelay):
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		n.logger.Info("shutting down notifier")
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	return nil
}
