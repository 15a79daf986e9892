package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Direct sends the SMS from the calling process on a background goroutine.
// BookingCreated never blocks on the provider and never returns its errors.
type Direct struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	loc     *time.Location

	wg sync.WaitGroup
}

func NewDirect(sender Sender, logger *slog.Logger, timeout time.Duration, loc *time.Location) *Direct {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Direct{
		sender:  sender,
		logger:  logger,
		timeout: timeout,
		loc:     loc,
	}
}

func (d *Direct) BookingCreated(ctx context.Context, ev BookingCreated) error {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, Recipient(ev.Phone), SMSBody(ev, d.loc)); err != nil {
			d.logger.Warn("booking sms failed", "booking_id", ev.BookingID, "error", err)
		}
	}()

	return nil
}

// Wait blocks until every in-flight send has finished.
func (d *Direct) Wait() {
	d.wg.Wait()
}
