package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestPublisher_Publish(t *testing.T) {
	ch := &recordingChannel{}
	p := &Publisher{channel: ch, exchange: ExchangePayrollEvents, source: "payroll", logger: logger.Nop()}

	ctx := WithCorrelationID(context.Background(), "req-42")
	err := p.Publish(ctx, "payroll.record.paid", map[string]string{"record_id": "rec-1"})
	require.NoError(t, err)

	assert.Equal(t, ExchangePayrollEvents, ch.exchange)
	assert.Equal(t, "payroll.record.paid", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "req-42", ch.msg.CorrelationId)

	var event Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, "payroll.record.paid", event.Type)
	assert.Equal(t, "payroll", event.Source)
	assert.Equal(t, ch.msg.MessageId, event.ID)

	var data map[string]string
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "rec-1", data["record_id"])
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	p := &Publisher{channel: ch, exchange: ExchangePayrollEvents, source: "payroll", logger: logger.Nop()}

	err := p.Publish(context.Background(), "payroll.month.closed", nil)
	assert.ErrorContains(t, err, "failed to publish event")
}
