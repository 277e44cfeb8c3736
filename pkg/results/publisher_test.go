package results

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	calls []publishCall
	err   error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.calls = append(f.calls, publishCall{exchange: exchange, key: key, msg: msg})
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.err
}

func TestPublisher_AddTest(t *testing.T) {
	ch := &fakeChannel{}
	meta := Meta{RunID: "run-1", Name: "login", URL: "http://localhost/login.html"}
	publisher := NewPublisher(context.Background(), ch, "htmlrunner", "results.login", meta, nil)

	publisher.AddTest("<html></html>", sampleStepResults())

	require.NoError(t, publisher.Err())
	require.Len(t, ch.calls, 1)

	call := ch.calls[0]
	assert.Equal(t, "htmlrunner", call.exchange)
	assert.Equal(t, "results.login", call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, MessageTypeTestCompleted, call.msg.Type)

	var msg Message
	require.NoError(t, json.Unmarshal(call.msg.Body, &msg))
	assert.Equal(t, call.msg.MessageId, msg.ID)
	assert.Equal(t, MessageTypeTestCompleted, msg.Type)
	require.NotNil(t, msg.Payload)
	assert.Equal(t, meta, msg.Payload.Meta)
	assert.False(t, msg.Payload.Passed)
	assert.Len(t, msg.Payload.Steps, 3)
}

func TestPublisher_ErrorsAreCollected(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	publisher := NewPublisher(context.Background(), ch, "htmlrunner", "", Meta{}, nil)

	publisher.AddTest("a", nil)
	publisher.AddTest("b", nil)

	err := publisher.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.Len(t, ch.calls, 2)
}

func TestPublisher_CloseWithoutConnection(t *testing.T) {
	publisher := NewPublisher(context.Background(), &fakeChannel{}, "x", "", Meta{}, nil)
	assert.NoError(t, publisher.Close())
}

func TestPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &fakeChannel{}
	publisher := NewPublisher(ctx, ch, "htmlrunner", "", Meta{}, nil)

	publisher.AddTest("a", nil)
	require.NoError(t, publisher.Err())

	cancel()
	publisher.AddTest("b", nil)

	err := publisher.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, ch.calls, 2)
}
