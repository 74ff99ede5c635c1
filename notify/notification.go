package notify

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Type is the discriminant of a notification. The set is open: unknown
// types are delivered like known ones.
type Type string

const (
	TypeOrderClaimed Type = "order_claimed"
	TypeOrderUpdated Type = "order_updated"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusOnTheWay  OrderStatus = "ON_THE_WAY"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusConfirmed, StatusPreparing, StatusOnTheWay, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Notification is one decoded frame. Payload is shared between all
// subscribers of a dispatch and must be treated as read-only.
type Notification struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type OrderClaimedPayload struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	ProfileID string      `json:"profile_id,omitempty"`
	Status    OrderStatus `json:"status"`
	ETA       string      `json:"eta"`
	ClaimedAt string      `json:"claimed_at"`
}

// OrderUpdatedPayload is the order snapshot sent after a status change.
type OrderUpdatedPayload struct {
	ID          string        `json:"id"`
	ProfileID   string        `json:"profile_id"`
	Status      OrderStatus   `json:"status"`
	StatusIndex int           `json:"status_index"`
	ETA         string        `json:"eta"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	AllStatuses []OrderStatus `json:"all_statuses"`
}

var (
	ErrMissingType    = errors.New("notification has no type")
	ErrMissingPayload = errors.New("notification has no payload")
	ErrUnexpectedType = errors.New("unexpected notification type")
)

type DecodeError struct {
	err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode notification: %v", e.err)
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

func NewDecodeError(err error) *DecodeError {
	return &DecodeError{err: err}
}

// Decode parses one text frame. The frame must be a JSON object with a
// non-empty "type"; the payload is kept raw.
func Decode(frame []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(frame, &n); err != nil {
		return Notification{}, NewDecodeError(err)
	}
	if n.Type == "" {
		return Notification{}, NewDecodeError(ErrMissingType)
	}
	return n, nil
}

func (n Notification) DecodePayload(v any) error {
	if len(n.Payload) == 0 || string(n.Payload) == "null" {
		return ErrMissingPayload
	}
	if err := json.Unmarshal(n.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", n.Type, err)
	}
	return nil
}

func (n Notification) OrderClaimed() (*OrderClaimedPayload, error) {
	if n.Type != TypeOrderClaimed {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedType, n.Type)
	}
	var p OrderClaimedPayload
	if err := n.DecodePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (n Notification) OrderUpdated() (*OrderUpdatedPayload, error) {
	if n.Type != TypeOrderUpdated {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedType, n.Type)
	}
	var p OrderUpdatedPayload
	if err := n.DecodePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
