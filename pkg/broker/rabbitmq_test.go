package broker

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

type fakeChannel struct {
	declared   []string
	kind       string
	confirmOn  bool
	declareErr error
	publishErr error
	published  []amqp.Publishing
	keys       []string
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name)
	f.kind = kind
	return f.declareErr
}

func (f *fakeChannel) Confirm(bool) error {
	f.confirmOn = true
	return nil
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(_ context.Context, _ string, key string, _, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	// A nil confirmation is what amqp returns when confirms are off.
	return nil, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewClientDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	client, err := newClient(ch, "marketplace.events")
	require.NoError(t, err)
	assert.Equal(t, []string{"marketplace.events"}, ch.declared)
	assert.Equal(t, amqp.ExchangeTopic, ch.kind)
	assert.True(t, ch.confirmOn)
	require.NoError(t, client.Ping(context.Background()))

	_, err = newClient(&fakeChannel{declareErr: errors.New("access refused")}, "x")
	require.ErrorContains(t, err, "access refused")
}

func TestPublishSetsPersistentHeaders(t *testing.T) {
	ch := &fakeChannel{}
	client, err := newClient(ch, "marketplace.events")
	require.NoError(t, err)

	err = client.Publish(context.Background(), Message{
		RoutingKey: "marketplace-orders",
		MessageID:  "evt-1",
		Body:       []byte(`{"version":1}`),
		Headers:    map[string]string{"event_type": "order.created"},
	})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "marketplace-orders", ch.keys[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "evt-1", msg.MessageId)
	assert.Equal(t, "order.created", msg.Headers["event_type"])
	assert.False(t, msg.Timestamp.IsZero())
}

func TestPublishErrors(t *testing.T) {
	ch := &fakeChannel{}
	client, err := newClient(ch, "ex")
	require.NoError(t, err)

	require.Error(t, client.Publish(context.Background(), Message{Body: []byte("{}")}))

	ch.publishErr = amqp.ErrClosed
	require.ErrorIs(t, client.Publish(context.Background(), Message{RoutingKey: "k"}), amqp.ErrClosed)

	var nilClient *Client
	require.Error(t, nilClient.Publish(context.Background(), Message{RoutingKey: "k"}))
	require.Error(t, nilClient.Ping(context.Background()))
	require.NoError(t, nilClient.Close())
}

func TestDialValidatesConfig(t *testing.T) {
	_, err := Dial(context.Background(), config.BrokerConfig{Exchange: "x"}, nil)
	require.ErrorIs(t, err, errURLRequired)
	_, err = Dial(context.Background(), config.BrokerConfig{URL: "amqp://localhost"}, nil)
	require.ErrorIs(t, err, errExchangeRequired)
}

func TestCloseClosesChannel(t *testing.T) {
	ch := &fakeChannel{}
	client, err := newClient(ch, "ex")
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.True(t, ch.closed)
}
