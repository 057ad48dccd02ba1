package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-ticketing/internal/mail"
)

// ErrBadMessage marks deliveries that can never succeed; they are dropped
// instead of requeued.
var ErrBadMessage = errors.New("bad email message")

// EmailConsumer drains the email.outbound queue and hands each rendered
// message to a mail.Sender.
type EmailConsumer struct {
	URL    string
	Sender mail.Sender
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (1s doubling up to 30s).
func (c *EmailConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("email-consumer: dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("email-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *EmailConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("email-consumer: set QoS: %v", err)
	}
	if _, err := ch.QueueDeclare(EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := c.Handle(ctx, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrBadMessage):
				log.Printf("email-consumer: dropping message: %v", err)
				_ = d.Nack(false, false)
			default:
				// SMTP hiccup: requeue unless the broker already redelivered it once
				log.Printf("email-consumer: send failed (redelivered=%t): %v", d.Redelivered, err)
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}
}

// Handle decodes, renders and sends one message body.
func (c *EmailConsumer) Handle(ctx context.Context, body []byte) error {
	var msg EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	payload := msg.Payload()
	if msg.To == "" || payload == nil {
		return fmt.Errorf("%w: kind=%q to=%q", ErrBadMessage, msg.Kind, msg.To)
	}
	rendered, err := mail.Render(msg.Kind, msg.To, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return c.Sender.Send(sendCtx, rendered)
}
