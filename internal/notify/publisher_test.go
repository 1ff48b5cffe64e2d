package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/room-booking/internal/application"
)

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, exchange+"/"+key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func sampleEvent(eventType string) application.BookingEvent {
	return application.BookingEvent{
		Type:       eventType,
		MeetingID:  "m1",
		Title:      "Planning",
		RoomID:     "room-a",
		Organizer:  application.Participant{Name: "Ada", Email: "ada@example.com"},
		Start:      time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		OccurredAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisher_PublishesJSON(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, "roombook.events", discardLogger())
	if err != nil {
		t.Fatalf("newAMQPPublisher: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "roombook.events:topic" {
		t.Fatalf("expected topic exchange declaration, got %v", ch.declared)
	}

	if err := p.PublishBookingEvent(context.Background(), sampleEvent(application.BookingCreated)); err != nil {
		t.Fatalf("PublishBookingEvent: %v", err)
	}
	if len(ch.published) != 1 || ch.keys[0] != "roombook.events/booking.created" {
		t.Fatalf("unexpected publish %v", ch.keys)
	}

	msg := ch.published[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent || msg.MessageId == "" {
		t.Fatalf("unexpected message properties %+v", msg)
	}
	var body map[string]any
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["type"] != "booking.created" || body["meetingId"] != "m1" || body["roomId"] != "room-a" {
		t.Fatalf("unexpected body %v", body)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel to be closed, got %v", err)
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p, err := newAMQPPublisher(ch, "roombook.events", discardLogger())
	if err != nil {
		t.Fatalf("newAMQPPublisher: %v", err)
	}
	if err := p.PublishBookingEvent(context.Background(), sampleEvent(application.BookingCancelled)); !errors.Is(err, amqp.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAsyncPublisher_DeliversThroughDispatcher(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	target, err := newAMQPPublisher(ch, "roombook.events", discardLogger())
	if err != nil {
		t.Fatalf("newAMQPPublisher: %v", err)
	}
	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 4, Retry: fastRetry(1)}, discardLogger())
	async := NewAsyncPublisher(d, target)

	for _, eventType := range []string{application.BookingCreated, application.BookingUpdated} {
		if err := async.PublishBookingEvent(context.Background(), sampleEvent(eventType)); err != nil {
			t.Fatalf("PublishBookingEvent: %v", err)
		}
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.keys) != 2 || ch.keys[1] != "roombook.events/booking.updated" {
		t.Fatalf("unexpected published keys %v", ch.keys)
	}
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := p.PublishBookingEvent(context.Background(), sampleEvent(application.BookingCreated)); err != nil {
		t.Fatalf("PublishBookingEvent: %v", err)
	}
	for _, want := range []string{"event_type=booking.created", "meeting_id=m1", "organizer=ada@example.com"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %q in %q", want, buf.String())
		}
	}
}
