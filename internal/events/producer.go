// Package events streams order lifecycle events to Kafka for analytics and
// downstream fulfilment.
package events

import (
	"context"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Event types.
const (
	OrderPlaced  = "order.placed"
	OrderSettled = "order.settled"
)

// OrderEvent is the JSON value written to the order topic.  Messages are
// keyed by order number so all events of one order land on one partition.
type OrderEvent struct {
	Type          string              `json:"type"`
	OrderID       uint64              `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
	Tickets       int                 `json:"tickets"`
	AffiliateID   *uint64             `json:"affiliate_id,omitempty"`
	ReferralCode  *string             `json:"referral_code,omitempty"`
	At            time.Time           `json:"at"`
}

// NewOrderEvent snapshots o as an event of the given type.
func NewOrderEvent(typ string, o model.Order) OrderEvent {
	return OrderEvent{
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.TotalAmount,
		Tickets:       o.TicketCount(),
		AffiliateID:   o.AffiliateID,
		ReferralCode:  o.ReferralCode,
		At:            time.Now().UTC(),
	}
}

// Publisher accepts order events without blocking the request.
type Publisher interface {
	Publish(ev OrderEvent)
}

// Discard drops every event; it is used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(OrderEvent) {}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers events in an inbox drained by one goroutine.  When the
// inbox is full new events are dropped and logged rather than stalling
// checkout.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer writes to topic on brokers with a buf-sized inbox.
func NewProducer(brokers []string, topic string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{w: w, inbox: make(chan kafka.Message, buf), closeCh: make(chan struct{})}
}

// Start runs the writer loop until ctx is cancelled, then flushes what is
// left in the inbox and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				if err := p.w.Close(); err != nil {
					log.Printf("kafka: close writer: %v", err)
				}
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		log.Printf("kafka: write %s: %v", m.Key, err)
	}
}

// Publish enqueues ev.
func (p *Producer) Publish(ev OrderEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		log.Printf("kafka: marshal %s: %v", ev.Type, err)
		return
	}
	m := kafka.Message{
		Key:     []byte(ev.OrderNumber),
		Value:   value,
		Time:    ev.At,
		Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
	}
	select {
	case p.inbox <- m:
	default:
		log.Printf("kafka: inbox full, dropping %s for %s", ev.Type, ev.OrderNumber)
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
