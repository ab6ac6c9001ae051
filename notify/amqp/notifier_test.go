package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/booking/id"
	"github.com/xraph/booking/notify"
	"github.com/xraph/booking/reservation"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestNotifyPublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	n := newNotifier(ch, "")

	r := &reservation.Reservation{ID: id.NewReservationID(), TenantID: "studio-1", ClientID: "ana"}
	ev := notify.Event{
		Kind:        notify.KindReservationPromoted,
		TenantID:    "studio-1",
		Reservation: r,
		OccurredAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Notify(context.Background(), ev))

	require.Len(t, ch.out, 1)
	got := ch.out[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, "studio-1.reservation.promoted", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Contains(t, got.msg.MessageId, r.ID.String())

	var decoded notify.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, notify.KindReservationPromoted, decoded.Kind)
	assert.Equal(t, r.ID, decoded.Reservation.ID)
}

func TestNotifyWrapsPublishError(t *testing.T) {
	n := newNotifier(&fakeChannel{err: amqp.ErrClosed}, "events")

	err := n.Notify(context.Background(), notify.Event{Kind: notify.KindReservationCreated, TenantID: "studio-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}
