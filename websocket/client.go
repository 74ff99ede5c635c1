package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/net/websocket"

	"wappi2mqtt/logger"
)

const (
	DEFAULT_DIAL_TIMEOUT      = 10 * time.Second
	DEFAULT_MAX_PAYLOAD_BYTES = 1 << 20
)

// NetDialer dials with golang.org/x/net/websocket.
type NetDialer struct {
	timeout         time.Duration
	maxPayloadBytes int
	logger          logger.Logger
}

func NewNetDialer(timeout time.Duration, logger logger.Logger) *NetDialer {
	if timeout <= 0 {
		timeout = DEFAULT_DIAL_TIMEOUT
	}
	return &NetDialer{
		timeout:         timeout,
		maxPayloadBytes: DEFAULT_MAX_PAYLOAD_BYTES,
		logger:          logger,
	}
}

func (d *NetDialer) Dial(ctx context.Context, target string) (Conn, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, NewDialError(redact(target), fmt.Errorf("invalid WebSocket URL: %w", err))
	}

	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}

	wsConfig, err := websocket.NewConfig(target, origin)
	if err != nil {
		return nil, NewDialError(redact(target), fmt.Errorf("failed to create WebSocket config: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ws, err := wsConfig.DialContext(ctx)
	if err != nil {
		// x/net's DialError prints the full location, token included.
		var wsErr *websocket.DialError
		if errors.As(err, &wsErr) {
			err = wsErr.Err
		}
		return nil, NewDialError(redact(target), err)
	}
	ws.MaxPayloadBytes = d.maxPayloadBytes

	d.logger.Debug("WebSocket connected to %s", redact(target))
	return &netConn{ws: ws}, nil
}

type netConn struct {
	ws *websocket.Conn
}

func (c *netConn) ReadFrame() ([]byte, error) {
	var data []byte
	if err := websocket.Message.Receive(c.ws, &data); err != nil {
		if IsClosedByPeer(err) {
			return nil, err
		}
		return nil, NewWebSocketError("read error", err)
	}
	return data, nil
}

func (c *netConn) Close() error {
	return c.ws.Close()
}

// redact hides the query string so credentials never reach the logs.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "<invalid url>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}
