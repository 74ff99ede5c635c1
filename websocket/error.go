package websocket

import (
	"errors"
	"fmt"
	"io"
)

type (
	DialError struct {
		target string
		err    error
	}

	WebSocketError struct {
		message string
		err     error
	}
)

func (e *DialError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.target, e.err)
}

func (e *DialError) Unwrap() error {
	return e.err
}

func (e *WebSocketError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("websocket error: %s - %v", e.message, e.err)
	}
	return fmt.Sprintf("websocket error: %s", e.message)
}

func (e *WebSocketError) Unwrap() error {
	return e.err
}

func NewDialError(target string, err error) *DialError {
	return &DialError{target: target, err: err}
}

func NewWebSocketError(message string, err error) *WebSocketError {
	return &WebSocketError{message: message, err: err}
}

// IsClosedByPeer reports whether err is the orderly end of a connection.
func IsClosedByPeer(err error) bool {
	return errors.Is(err, io.EOF)
}
