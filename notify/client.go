package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"wappi2mqtt/logger"
	"wappi2mqtt/retry"
	"wappi2mqtt/websocket"
)

const (
	DEFAULT_BASE_URL = "http://localhost:8081"
	DEFAULT_PATH     = "/ws/notifications"
	TOKEN_PARAM      = "token"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnectPending
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectPending:
		return "reconnect_pending"
	case StateGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

type (
	MessageHandler    func(Notification)
	ConnectionHandler func()
	GiveUpHandler     func(attempts int)
)

// Client keeps one authenticated connection to the notification endpoint and
// fans notifications out to subscribers.
//
// All subscriber callbacks run on a single dispatch goroutine, one at a time,
// in the order the underlying events happened. Handlers may call any Client
// method, including the unsubscribe functions.
type Client struct {
	target    string
	path      string
	dialer    websocket.Dialer
	scheduler Scheduler
	retry     *retry.Manager
	recorder  Recorder
	logger    logger.Logger

	mu         sync.Mutex
	state      State
	conn       websocket.Conn
	cancelDial context.CancelFunc
	timer      Timer
	gen        uint64
	token      string
	manual     bool
	closed     bool
	queue      []func()

	wake chan struct{}
	done chan struct{}

	messages    registry[MessageHandler]
	connects    registry[ConnectionHandler]
	disconnects registry[ConnectionHandler]
	giveUps     registry[GiveUpHandler]
}

// NewClient derives the streaming endpoint from baseURL (http→ws, https→wss,
// host and path kept, DEFAULT_PATH appended). An empty baseURL means
// DEFAULT_BASE_URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		path:      DEFAULT_PATH,
		scheduler: timeScheduler{},
		recorder:  nopRecorder{},
		logger:    logger.Nop(),
		state:     StateIdle,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	target, err := BuildURL(baseURL, c.path)
	if err != nil {
		return nil, err
	}
	c.target = target

	if c.dialer == nil {
		c.dialer = websocket.NewNetDialer(websocket.DEFAULT_DIAL_TIMEOUT, c.logger)
	}
	if c.retry == nil {
		c.retry = retry.NewManager(retry.WithLogger(c.logger))
	}

	go c.run()
	return c, nil
}

// BuildURL swaps the scheme of baseURL for its streaming equivalent and
// appends path.
func BuildURL(baseURL, path string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DEFAULT_BASE_URL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL %q has no host", baseURL)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// URL is the endpoint without credentials.
func (c *Client) URL() string {
	return c.target
}

// Connect opens the connection with token. It returns immediately; the
// outcome is reported through OnConnect/OnDisconnect. Calling it while a
// connection is open or being opened does nothing. From any other state it
// cancels a pending retry and starts over with a fresh attempt counter.
func (c *Client) Connect(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state == StateOpen || c.state == StateConnecting {
		return
	}

	c.token = token
	c.manual = false
	c.stopTimerLocked()
	c.retry.Reset()
	c.dialLocked()
}

// Disconnect closes the connection and cancels any pending retry. No
// automatic reconnect happens until the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()

	c.manual = true
	c.gen++
	c.stopTimerLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}

	conn := c.conn
	c.conn = nil
	if c.state == StateOpen {
		c.recorder.Disconnected()
		c.enqueueLocked(c.dispatchDisconnect)
	}
	c.state = StateIdle
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Debug("Notification connection closed during disconnect: %v", err)
		}
		c.logger.Info("Disconnected from notifications")
	}
}

// Close disconnects and stops the dispatch goroutine. Events not yet
// delivered are dropped. The client cannot be reused.
func (c *Client) Close() {
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.queue = nil
	close(c.done)
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen && c.conn != nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the number of reconnect attempts in the current disconnection episode.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retry.GetAttempt()
}

func (c *Client) OnMessage(h MessageHandler) func() {
	if h == nil {
		return func() {}
	}
	return c.messages.add(h)
}

func (c *Client) OnConnect(h ConnectionHandler) func() {
	if h == nil {
		return func() {}
	}
	return c.connects.add(h)
}

func (c *Client) OnDisconnect(h ConnectionHandler) func() {
	if h == nil {
		return func() {}
	}
	return c.disconnects.add(h)
}

// OnGiveUp registers h for the moment the retry ceiling is reached. It fires
// after the disconnect notification of the final drop.
func (c *Client) OnGiveUp(h GiveUpHandler) func() {
	if h == nil {
		return func() {}
	}
	return c.giveUps.add(h)
}

func (c *Client) targetWithToken(token string) string {
	q := url.Values{}
	q.Set(TOKEN_PARAM, token)
	return c.target + "?" + q.Encode()
}

func (c *Client) dialLocked() {
	c.gen++
	gen := c.gen
	c.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel

	go c.dial(ctx, cancel, gen, c.targetWithToken(c.token))
}

func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, gen uint64, target string) {
	conn, err := c.dialer.Dial(ctx, target)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.cancelDial = nil

	if err != nil {
		c.logger.Error("Failed to connect to notifications: %v", err)
		c.recorder.DialFailed()
		c.handleDropLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.retry.Reset()
	c.recorder.Connected()
	c.enqueueLocked(c.dispatchConnect)
	c.mu.Unlock()

	c.logger.Info("Connected to notifications at %s", c.target)
	c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn websocket.Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			if websocket.IsClosedByPeer(err) {
				c.logger.Info("Notification connection closed by server")
			} else {
				c.logger.Warn("Notification connection lost: %v", err)
			}
			c.conn = nil
			c.handleDropLocked()
			c.mu.Unlock()

			_ = conn.Close()
			return
		}

		n, err := Decode(frame)
		if err != nil {
			c.logger.Error("Error parsing notification: %v", err)
			c.recorder.DecodeFailed()
			continue
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.recorder.MessageReceived(n.Type)
		c.enqueueLocked(func() {
			c.dispatchMessage(n)
		})
		c.mu.Unlock()
	}
}

// handleDropLocked reports the drop and schedules the next attempt, or gives
// up once the retry ceiling is reached.
func (c *Client) handleDropLocked() {
	c.recorder.Disconnected()
	c.enqueueLocked(c.dispatchDisconnect)

	if c.manual {
		c.state = StateIdle
		return
	}

	delay, ok := c.retry.Next()
	if !ok {
		c.state = StateGivenUp
		attempts := c.retry.GetAttempt()
		c.logger.Error("Giving up on notifications after %d reconnect attempts", attempts)
		c.recorder.GaveUp()
		c.enqueueLocked(func() {
			c.dispatchGiveUp(attempts)
		})
		return
	}

	c.state = StateReconnectPending
	c.recorder.ReconnectScheduled(c.retry.GetAttempt(), delay)

	gen := c.gen
	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.reconnect(gen)
	})
}

func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.manual || gen != c.gen || c.state != StateReconnectPending {
		return
	}
	c.timer = nil
	c.dialLocked()
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) enqueueLocked(fn func()) {
	if c.closed {
		return
	}
	c.queue = append(c.queue, fn)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) run() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for {
			c.mu.Lock()
			if c.closed || len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			fn := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()

			fn()
		}
	}
}

func (c *Client) dispatchConnect() {
	for _, h := range c.connects.snapshot() {
		c.safely("connect", h)
	}
}

func (c *Client) dispatchDisconnect() {
	for _, h := range c.disconnects.snapshot() {
		c.safely("disconnect", h)
	}
}

func (c *Client) dispatchMessage(n Notification) {
	c.logger.Debug("Notification received: %s", n.Type)
	for _, h := range c.messages.snapshot() {
		c.safely("message", func() {
			h(n)
		})
	}
}

func (c *Client) dispatchGiveUp(attempts int) {
	for _, h := range c.giveUps.snapshot() {
		c.safely("give up", func() {
			h(attempts)
		})
	}
}

// safely runs one handler; a panicking handler does not stop the others.
func (c *Client) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Notification %s handler panic: %v", kind, r)
		}
	}()
	fn()
}
