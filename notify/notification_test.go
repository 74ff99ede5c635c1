package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType Type
		wantErr  error
	}{
		{"order claimed", `{"type":"order_claimed","payload":{"order_id":"1"}}`, TypeOrderClaimed, nil},
		{"unknown type kept", `{"type":"promo","payload":{}}`, "promo", nil},
		{"no payload", `{"type":"ping"}`, "ping", nil},
		{"missing type", `{"payload":{}}`, "", ErrMissingType},
		{"empty type", `{"type":"","payload":{}}`, "", ErrMissingType},
		{"not json", `hello`, "", nil},
		{"array", `[1,2]`, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Decode([]byte(tt.frame))
			if tt.wantType == "" {
				require.Error(t, err)
				var decodeErr *DecodeError
				assert.True(t, errors.As(err, &decodeErr))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, n.Type)
		})
	}
}

func TestNotification_OrderClaimed(t *testing.T) {
	n, err := Decode([]byte(`{"type":"order_claimed","payload":{"order_id":"o-1","user_id":"u-1","profile_id":"p-1","status":"PREPARING","eta":"15m","claimed_at":"2024-05-01T12:00:00Z"}}`))
	require.NoError(t, err)

	p, err := n.OrderClaimed()
	require.NoError(t, err)
	assert.Equal(t, OrderClaimedPayload{
		OrderID:   "o-1",
		UserID:    "u-1",
		ProfileID: "p-1",
		Status:    StatusPreparing,
		ETA:       "15m",
		ClaimedAt: "2024-05-01T12:00:00Z",
	}, *p)

	_, err = n.OrderUpdated()
	assert.ErrorIs(t, err, ErrUnexpectedType)
}

func TestNotification_OrderUpdated(t *testing.T) {
	n, err := Decode([]byte(`{"type":"order_updated","payload":{"id":"o-1","status":"DELIVERED","status_index":4,"all_statuses":["CREATED","DELIVERED"]}}`))
	require.NoError(t, err)

	p, err := n.OrderUpdated()
	require.NoError(t, err)
	assert.Equal(t, "o-1", p.ID)
	assert.Equal(t, StatusDelivered, p.Status)
	assert.Equal(t, []OrderStatus{StatusCreated, StatusDelivered}, p.AllStatuses)
}

func TestNotification_MissingPayload(t *testing.T) {
	for _, frame := range []string{`{"type":"order_claimed"}`, `{"type":"order_claimed","payload":null}`} {
		n, err := Decode([]byte(frame))
		require.NoError(t, err)
		_, err = n.OrderClaimed()
		assert.ErrorIs(t, err, ErrMissingPayload, frame)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, StatusOnTheWay.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, OrderStatus("LOST").Valid())
	assert.False(t, OrderStatus("").Valid())
}
