package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type sent struct {
	to, body string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sent
	errFn func() error
}

func (f *fakeSender) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sent{to, body})
	if f.errFn != nil {
		return f.errFn()
	}
	return nil
}

func sampleEvent() BookingCreated {
	return BookingCreated{
		BookingID:   42,
		UserID:      7,
		PremiseName: "Central Plaza",
		Phone:       "9876543210",
		Duration:    2,
		TotalPrice:  100,
		StartTime:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSMSBody(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	got := SMSBody(sampleEvent(), ist)
	want := "Parking Booking Confirmed\n" +
		"Location: Central Plaza\n" +
		"Duration: 2 hours\n" +
		"Total: INR 100\n" +
		"Booking ID: 42\n" +
		"Start Time: 2026-05-01 14:30\n" +
		"Thank you for using letsPark!"

	if got != want {
		t.Fatalf("SMSBody =\n%s\nwant\n%s", got, want)
	}
}

func TestRecipient(t *testing.T) {
	tests := map[string]string{
		"9876543210":   "+919876543210",
		" 9876543210 ": "+919876543210",
		"+14155550100": "+14155550100",
	}
	for in, want := range tests {
		if got := Recipient(in); got != want {
			t.Errorf("Recipient(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDirectNeverReturnsSendErrors(t *testing.T) {
	s := &fakeSender{errFn: func() error { return errors.New("twilio down") }}
	d := NewDirect(s, discard, time.Second, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.BookingCreated(ctx, sampleEvent()); err != nil {
		t.Fatalf("BookingCreated = %v, want nil", err)
	}
	cancel()
	d.Wait()

	if len(s.sent) != 1 || s.sent[0].to != "+919876543210" {
		t.Fatalf("sent = %+v", s.sent)
	}
}

type recordingChannel struct {
	exchange, key string
	msg           amqp.Publishing

	// block, when set, holds publishes until it is closed or ctx ends.
	block chan struct{}
	err   error
}

func (r *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.exchange, r.key, r.msg = exchange, key, msg
	return r.err
}

func (r *recordingChannel) Close() error { return nil }

func TestPublisherBookingCreated(t *testing.T) {
	ch := &recordingChannel{}
	p := &Publisher{ch: ch, exchange: "letspark.events", logger: discard}

	if err := p.BookingCreated(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("BookingCreated: %v", err)
	}
	p.Wait()

	if ch.exchange != "letspark.events" || ch.key != RKBookingCreated {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.MessageId == "" {
		t.Fatalf("publishing = %+v", ch.msg)
	}

	var ev BookingCreated
	if err := json.Unmarshal(ch.msg.Body, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.BookingID != 42 || ev.MessageID != ch.msg.MessageId {
		t.Fatalf("payload = %+v", ev)
	}
}

func TestPublisherDoesNotBlockCaller(t *testing.T) {
	ch := &recordingChannel{block: make(chan struct{})}
	p := &Publisher{ch: ch, exchange: "letspark.events", logger: discard, timeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- p.BookingCreated(context.Background(), sampleEvent()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BookingCreated = %v, want nil", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("BookingCreated blocked on the broker")
	}

	close(ch.block)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if ch.key != RKBookingCreated {
		t.Fatalf("key = %q, publish did not finish before Close", ch.key)
	}
}

func TestPublisherSwallowsBrokerErrors(t *testing.T) {
	tests := []struct {
		name string
		ch   *recordingChannel
	}{
		{"publish error", &recordingChannel{err: errors.New("channel closed")}},
		{"slow broker", &recordingChannel{block: make(chan struct{})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Publisher{ch: tt.ch, exchange: "letspark.events", logger: discard, timeout: 50 * time.Millisecond}

			ctx, cancel := context.WithCancel(context.Background())
			if err := p.BookingCreated(ctx, sampleEvent()); err != nil {
				t.Fatalf("BookingCreated = %v, want nil", err)
			}
			cancel()

			// the publish timeout, not the request context, bounds the wait
			p.Wait()
		})
	}
}

func TestConsumerHandle(t *testing.T) {
	body, _ := json.Marshal(sampleEvent())
	failing := func() error { return errors.New("boom") }

	tests := []struct {
		name      string
		delivery  amqp.Delivery
		errFn     func() error
		want      verdict
		wantSends int
	}{
		{"sends sms", amqp.Delivery{RoutingKey: RKBookingCreated, Body: body}, nil, ack, 1},
		{"unknown key", amqp.Delivery{RoutingKey: "payment.paid", Body: body}, nil, ack, 0},
		{"malformed", amqp.Delivery{RoutingKey: RKBookingCreated, Body: []byte("{")}, nil, drop, 0},
		{"missing phone", amqp.Delivery{RoutingKey: RKBookingCreated, Body: []byte(`{"booking_id":1}`)}, nil, drop, 0},
		{"first failure", amqp.Delivery{RoutingKey: RKBookingCreated, Body: body}, failing, requeue, 1},
		{"failure after retry", amqp.Delivery{RoutingKey: RKBookingCreated, Body: body, Redelivered: true}, failing, ack, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{errFn: tt.errFn}
			c := NewConsumer(ConsumerConfig{Queue: "sms"}, s, discard)

			if got := c.handle(context.Background(), tt.delivery); got != tt.want {
				t.Fatalf("verdict = %d, want %d", got, tt.want)
			}
			if len(s.sent) != tt.wantSends {
				t.Fatalf("sends = %d, want %d", len(s.sent), tt.wantSends)
			}
			if tt.wantSends > 0 && !strings.Contains(s.sent[0].body, "Booking ID: 42") {
				t.Fatalf("body = %q", s.sent[0].body)
			}
		})
	}
}
