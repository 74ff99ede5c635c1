package websocket

import (
	"context"
)

// Conn is one live streaming connection. ReadFrame blocks until a text frame
// arrives or the connection ends; Close unblocks a pending ReadFrame.
type Conn interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Dialer opens connections to a ws:// or wss:// target.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, target string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, target string) (Conn, error) {
	return f(ctx, target)
}
