package notify

import (
	"wappi2mqtt/logger"
	"wappi2mqtt/retry"
	"wappi2mqtt/websocket"
)

type Option func(*Client)

func WithDialer(d websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithRetry(m *retry.Manager) Option {
	return func(c *Client) {
		c.retry = m
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithPath overrides the endpoint path appended to the base address.
func WithPath(path string) Option {
	return func(c *Client) {
		c.path = path
	}
}
