package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	// publishBuffer is how many events may wait for the broker before new
	// ones are dropped.
	publishBuffer = 256

	defaultDialTimeout = 2 * time.Second
	publishTimeout     = 3 * time.Second
)

var (
	// ErrPublisherBusy is returned when the buffer is full and the event
	// was dropped.
	ErrPublisherBusy = errors.New("publisher buffer full")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)

// Publisher sends booking events to durable queues on the default exchange.
//
// Publish only enqueues; a single background worker dials the broker lazily,
// re-dials after a failure and delivers events in order.  A slow or missing
// broker therefore never holds up a request.  Callers treat errors as
// non-fatal: a lost event never fails a booking.
type Publisher struct {
	url         string
	log         *logrus.Logger
	dialTimeout time.Duration

	events  chan BookingEvent
	quit    chan struct{}
	stopped chan struct{}
	start   sync.Once
	stop    sync.Once

	// conn and ch belong to the worker goroutine.
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{
		url:         url,
		log:         log,
		dialTimeout: defaultDialTimeout,
		events:      make(chan BookingEvent, publishBuffer),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Publish queues ev for delivery to the queue named by ev.Type.  It never
// waits on the broker.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	if p == nil || p.url == "" {
		return nil
	}
	select {
	case <-p.quit:
		return ErrPublisherClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.start.Do(func() { go p.run() })

	select {
	case p.events <- ev:
		return nil
	default:
		p.log.WithFields(logrus.Fields{"queue": ev.Type, "reference": ev.Reference}).
			Warn("rabbitmq: publish buffer full, event dropped")
		return ErrPublisherBusy
	}
}

func (p *Publisher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.quit:
			if n := len(p.events); n > 0 {
				p.log.WithField("pending", n).Warn("rabbitmq: publisher closed with undelivered events")
			}
			return
		case ev := <-p.events:
			if err := p.deliver(ev); err != nil {
				p.log.WithError(err).WithFields(logrus.Fields{"queue": ev.Type, "reference": ev.Reference}).
					Warn("rabbitmq: publish failed")
			}
		}
	}
}

// deliver sends one event, dialling if needed.  Worker goroutine only.
func (p *Publisher) deliver(ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if _, err := ch.QueueDeclare(ev.Type, true, false, false, false, nil); err != nil {
		p.reset()
		return fmt.Errorf("queue declare: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.Reference,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel returns an open channel.  The dial, including the AMQP handshake,
// is bounded by dialTimeout.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Dial: amqp.DefaultDial(p.dialTimeout),
		})
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		p.reset()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops the worker, waiting for an in-flight delivery to finish, and
// releases the connection.  Events still buffered are dropped.
func (p *Publisher) Close() error {
	if p == nil || p.quit == nil {
		return nil
	}
	p.stop.Do(func() {
		close(p.quit)
		// a worker that never started has nothing to wait for
		p.start.Do(func() { close(p.stopped) })
		<-p.stopped
		p.reset()
	})
	return nil
}
