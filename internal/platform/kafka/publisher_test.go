package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishAwardKeysByUser(t *testing.T) {
	w := &fakeWriter{}
	p := &AwardPublisher{writer: w}

	event := ledger.AwardEvent{
		ID:        uuid.New(),
		UserID:    77,
		Amount:    500,
		Reason:    ledger.ReasonReferral,
		Metadata:  ledger.ReferralMeta{RefereeID: 78},
		Total:     1500,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishAward(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "77", string(msg.Key))
	assert.Equal(t, "referral", string(msg.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.EqualValues(t, 1500, decoded["total"])
	assert.EqualValues(t, 78, decoded["metadata"].(map[string]interface{})["referee_id"])
}

func TestPublishAwardWriteError(t *testing.T) {
	p := &AwardPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.PublishAward(context.Background(), ledger.AwardEvent{UserID: 1, Reason: ledger.ReasonDailySpin})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewWithoutBrokersIsNoop(t *testing.T) {
	p := New(nil, "points.awarded")
	_, ok := p.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.PublishAward(context.Background(), ledger.AwardEvent{}))
}
