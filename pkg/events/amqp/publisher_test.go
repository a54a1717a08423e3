package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/events"
	"coffeeshop/pkg/logger"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "coffeeshop.orders", logger.NewNop())

	env, err := events.New(context.Background(), events.OrderRevised, "test", 12,
		time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), events.OrderPayload{OrderID: 12})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.Publish(ctx, env)
	cancel()
	p.Wait()

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "coffeeshop.orders", got.exchange)
	assert.Equal(t, events.OrderRevised, got.key)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, env.EventID, got.msg.MessageId)
	assert.Equal(t, "12", got.msg.CorrelationId)

	var decoded events.Envelope
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	payload, err := events.Decode[events.OrderPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(12), payload.OrderID)
}

func TestPublisher_FailureIsLoggedNotReturned(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "coffeeshop.orders", logger.NewNop())

	env, err := events.New(context.Background(), events.OrderRemoved, "test", 1, time.Now(), events.OrderPayload{OrderID: 1})
	require.NoError(t, err)

	assert.NotPanics(t, func() { p.Publish(context.Background(), env) })
	p.Wait()
	assert.Empty(t, ch.sent)
}
