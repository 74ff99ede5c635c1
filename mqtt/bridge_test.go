package mqtt

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wappi2mqtt/config"
	"wappi2mqtt/logger"
	"wappi2mqtt/notify"
)

func newTestBridge(connected bool) (*Bridge, *fakeMQTT) {
	client := &fakeMQTT{connected: connected}
	cfg := &config.MQTTConfig{TopicPrefix: "test", QoS: 1, Retain: false}
	return NewBridge(client, cfg, logger.Nop()), client
}

func TestBridge_StateIsRetained(t *testing.T) {
	b, client := newTestBridge(true)
	h := b.Handlers()

	h.OnConnected()
	h.OnDisconnected()
	h.OnGiveUp(5)

	assert.Equal(t, []published{
		{"test/state", STATE_CONNECTED, 1, true},
		{"test/state", STATE_DISCONNECTED, 1, true},
		{"test/state", STATE_GIVEN_UP, 1, true},
	}, client.sent())
}

func TestBridge_Notification(t *testing.T) {
	b, client := newTestBridge(true)

	n, err := notify.Decode([]byte(`{"type":"promo","payload":{"code":"X"}}`))
	require.NoError(t, err)
	b.OnNotification(n)

	n, err = notify.Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	b.OnNotification(n)

	sent := client.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "test/notifications/promo", sent[0].topic)
	assert.JSONEq(t, `{"code":"X"}`, sent[0].payload)
	assert.False(t, sent[0].retain)
	assert.Equal(t, "test/notifications/ping", sent[1].topic)
	assert.Equal(t, "null", sent[1].payload)
}

func TestBridge_OrderEvents(t *testing.T) {
	b, client := newTestBridge(true)

	b.OnOrderClaimed(notify.OrderClaimedPayload{OrderID: "o-1", UserID: "u-1", Status: notify.StatusConfirmed})
	b.OnOrderUpdated(notify.OrderUpdatedPayload{ID: "o-1", Status: notify.StatusOnTheWay})

	sent := client.sent()
	require.Len(t, sent, 2)

	assert.Equal(t, "test/orders/o-1/claimed", sent[0].topic)
	var claimed notify.OrderClaimedPayload
	require.NoError(t, json.Unmarshal([]byte(sent[0].payload), &claimed))
	assert.Equal(t, "u-1", claimed.UserID)

	assert.Equal(t, published{"test/orders/o-1/status", "ON_THE_WAY", 1, true}, sent[1])
}

func TestBridge_DropsWhileBrokerDisconnected(t *testing.T) {
	b, client := newTestBridge(false)

	b.PublishState(STATE_CONNECTED)
	b.OnOrderUpdated(notify.OrderUpdatedPayload{ID: "o-1", Status: notify.StatusDelivered})

	assert.Empty(t, client.sent())
}

func TestBridge_PublishErrorIsNotFatal(t *testing.T) {
	b, client := newTestBridge(true)
	client.failNext = errors.New("broker gone")

	b.PublishState(STATE_CONNECTED)
	b.PublishState(STATE_DISCONNECTED)

	assert.Equal(t, []published{{"test/state", STATE_DISCONNECTED, 1, true}}, client.sent())
}
