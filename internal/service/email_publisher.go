// Package service holds the broker-facing publishers used by the handlers.
package service

import (
	"context"
	"log"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-ticketing/internal/queue"
)

// EmailPublisher queues outbound emails on RabbitMQ.  A connection is
// opened per publish; email volume is a handful of messages per order.
type EmailPublisher struct {
	URL string
}

func NewEmailPublisher(url string) *EmailPublisher { return &EmailPublisher{URL: url} }

// Enqueue publishes msg to the email.outbound queue as a persistent message.
// Errors are logged and returned; callers treat email as best effort.
func (p *EmailPublisher) Enqueue(ctx context.Context, msg queue.EmailMessage) error {
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("rabbitmq: marshal email failed: %v", err)
		return err
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.EmailQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	if err := ch.PublishWithContext(ctx, "", queue.EmailQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.QueuedAt,
		Type:         msg.Kind,
		Body:         body,
	}); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", msg.Kind, err)
		return err
	}
	return nil
}
