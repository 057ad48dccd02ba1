package events

import (
	"context"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestProducerFlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 8)

	order := model.Order{
		ID: 1, OrderNumber: "n-1", Status: model.OrderConfirmed, PaymentStatus: model.PaymentPaid,
		TotalAmount: decimal.RequireFromString("40.00"),
		Items:       []model.OrderItem{{Quantity: 2}, {Quantity: 1}},
	}
	p.Publish(NewOrderEvent(OrderPlaced, order))
	p.Publish(NewOrderEvent(OrderSettled, order))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	require.Len(t, w.msgs, 2)
	assert.True(t, w.closed)
	assert.Equal(t, "n-1", string(w.msgs[0].Key))
	assert.Equal(t, OrderSettled, string(w.msgs[1].Headers[0].Value))

	var ev OrderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, OrderPlaced, ev.Type)
	assert.Equal(t, 3, ev.Tickets)
	assert.True(t, ev.Total.Equal(decimal.NewFromInt(40)))
}

func TestPublishDropsWhenInboxFull(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 1)
	p.Publish(OrderEvent{Type: OrderPlaced, OrderNumber: "a"})
	p.Publish(OrderEvent{Type: OrderPlaced, OrderNumber: "b"})
	assert.Len(t, p.inbox, 1)
}
