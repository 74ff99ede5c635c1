package retry

import (
	"math"
	"time"

	"wappi2mqtt/logger"
)

const (
	INITIAL_RETRY_DELAY      = time.Second
	MAX_RETRY_DELAY          = 30 * time.Second
	RETRY_BACKOFF_MULTIPLIER = 2
	MAX_RETRY_ATTEMPTS       = 5
)

// Manager tracks reconnect attempts for one disconnection episode. It does not
// sleep: callers schedule the returned delay themselves. Not safe for concurrent use.
type Manager struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	attempt      int
	logger       logger.Logger
}

type Option func(*Manager)

func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		m.maxAttempts = n
	}
}

func WithDelays(initial, max time.Duration) Option {
	return func(m *Manager) {
		if initial > 0 {
			m.initialDelay = initial
		}
		if max > 0 {
			m.maxDelay = max
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		maxAttempts:  MAX_RETRY_ATTEMPTS,
		initialDelay: INITIAL_RETRY_DELAY,
		maxDelay:     MAX_RETRY_DELAY,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Next consumes one attempt and returns the delay to wait before it. ok is
// false once the ceiling has been reached; the counter is left untouched then.
func (m *Manager) Next() (delay time.Duration, ok bool) {
	if m.attempt >= m.maxAttempts {
		m.logger.Warn("Max reconnection attempts (%d) reached", m.maxAttempts)
		return 0, false
	}

	m.attempt++
	delay = m.Delay(m.attempt)
	m.logger.Info("Reconnecting in %v (attempt %d/%d)", delay, m.attempt, m.maxAttempts)
	return delay, true
}

// Delay is min(initial * 2^attempt, max).
func (m *Manager) Delay(attempt int) time.Duration {
	d := math.Min(
		float64(m.initialDelay)*math.Pow(RETRY_BACKOFF_MULTIPLIER, float64(attempt)),
		float64(m.maxDelay),
	)
	return time.Duration(d)
}

func (m *Manager) Reset() {
	if m.attempt > 0 {
		m.logger.Debug("Reconnection manager reset after %d attempts", m.attempt)
	}
	m.attempt = 0
}

func (m *Manager) GetAttempt() int {
	return m.attempt
}

func (m *Manager) MaxAttempts() int {
	return m.maxAttempts
}
