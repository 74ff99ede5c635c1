package notify

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wappi2mqtt/logger"
	"wappi2mqtt/websocket"
)

type fakeConn struct {
	frames      chan []byte
	errs        chan error
	closed      chan struct{}
	closeOnce   sync.Once
	ignoreClose bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	if c.ignoreClose {
		select {
		case f := <-c.frames:
			return f, nil
		case err := <-c.errs:
			return nil, err
		}
	}
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.errs:
		return nil, err
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) send(t *testing.T, frame string) {
	t.Helper()
	select {
	case c.frames <- []byte(frame):
	case <-time.After(2 * time.Second):
		t.Fatalf("frame %q was not read", frame)
	}
}

func (c *fakeConn) drop() {
	c.errs <- io.EOF
}

type fakeDialer struct {
	mu      sync.Mutex
	targets []string
	conns   []*fakeConn
	fail    int
	block   bool
	// ignoreClose is copied into each new conn.
	ignoreClose bool
	started     chan struct{}
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{started: make(chan struct{}, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (websocket.Conn, error) {
	d.mu.Lock()
	d.targets = append(d.targets, target)
	block := d.block
	fail := d.fail > 0
	if fail {
		d.fail--
	}
	d.mu.Unlock()

	d.started <- struct{}{}

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, websocket.NewDialError(target, errors.New("connection refused"))
	}

	conn := newFakeConn()
	d.mu.Lock()
	conn.ignoreClose = d.ignoreClose
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) target(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.targets[i]
}

func (d *fakeDialer) setFail(n int) {
	d.mu.Lock()
	d.fail = n
	d.mu.Unlock()
}

type fakeTimer struct {
	s       *fakeScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.delay
	}
	return out
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) isStopped(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i].stopped
}

// fire runs timer i as if it elapsed, even when it was stopped in between.
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	t.fired = true
	s.mu.Unlock()
	t.f()
}

type fakeRecorder struct {
	mu        sync.Mutex
	connected int
	dropped   int
	dialFails int
	scheduled []int
	gaveUp    int
	messages  map[Type]int
	decodes   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{messages: make(map[Type]int)}
}

func (r *fakeRecorder) Connected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *fakeRecorder) Disconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func (r *fakeRecorder) DialFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialFails++
}

func (r *fakeRecorder) ReconnectScheduled(attempt int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, attempt)
}

func (r *fakeRecorder) GaveUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gaveUp++
}

func (r *fakeRecorder) MessageReceived(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[t]++
}

func (r *fakeRecorder) DecodeFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decodes++
}

type harness struct {
	client   *Client
	dialer   *fakeDialer
	sched    *fakeScheduler
	recorder *fakeRecorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		dialer:   newFakeDialer(),
		sched:    &fakeScheduler{},
		recorder: newFakeRecorder(),
	}
	base := []Option{
		WithDialer(h.dialer),
		WithScheduler(h.sched),
		WithRecorder(h.recorder),
		WithLogger(logger.Nop()),
	}
	c, err := NewClient("http://localhost:8081", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	h.client = c
	return h
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.client.State() == want
	}, 2*time.Second, 5*time.Millisecond, "state never became %s (is %s)", want, h.client.State())
}

func (h *harness) waitTimers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.sched.count() >= n
	}, 2*time.Second, 5*time.Millisecond, "expected %d scheduled retries", n)
}

// signal returns a handler that counts calls and a channel fed on each call.
func signal() (func(), *counter) {
	c := &counter{ch: make(chan struct{}, 64)}
	return func() {
		c.mu.Lock()
		c.n++
		c.mu.Unlock()
		c.ch <- struct{}{}
	}, c
}

type counter struct {
	mu sync.Mutex
	n  int
	ch chan struct{}
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *counter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}
