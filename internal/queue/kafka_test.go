package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist/internal/models"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w}
	done := true
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), &models.ItemEvent{
		Action: models.ActionToggled, ID: 42, Completed: &done, OccurredAt: at,
	}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))

	var ev models.ItemEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, models.ActionToggled, ev.Action)
	assert.EqualValues(t, 42, ev.ID)
	require.NotNil(t, ev.Completed)
	assert.True(t, *ev.Completed)
	assert.True(t, at.Equal(ev.OccurredAt))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), &models.ItemEvent{Action: models.ActionCleared}))
	assert.NoError(t, p.Close())
}
