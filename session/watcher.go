package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"wappi2mqtt/credentials"
	"wappi2mqtt/logger"
	"wappi2mqtt/notify"
)

var ErrNoCredential = errors.New("no stored credential")

// Source is the part of notify.Client a Watcher binds to.
type Source interface {
	Connect(token string)
	Disconnect()
	IsConnected() bool
	OnMessage(h notify.MessageHandler) func()
	OnConnect(h notify.ConnectionHandler) func()
	OnDisconnect(h notify.ConnectionHandler) func()
	OnGiveUp(h notify.GiveUpHandler) func()
}

// Handlers are the optional callbacks of a Watcher. Nil fields are skipped.
type Handlers struct {
	OnOrderClaimed func(notify.OrderClaimedPayload)
	OnOrderUpdated func(notify.OrderUpdatedPayload)
	// OnNotification sees every notification, typed ones included.
	OnNotification func(notify.Notification)
	OnConnected    func()
	OnDisconnected func()
	OnGiveUp       func(attempts int)
}

// Watcher ties a consumer's lifetime to a client: it mirrors connectivity
// and routes order events to typed callbacks until Detach.
type Watcher struct {
	source    Source
	handlers  Handlers
	logger    logger.Logger
	connected atomic.Bool

	mu     sync.Mutex
	unsubs []func()
}

func Attach(source Source, handlers Handlers, logger logger.Logger) *Watcher {
	w := &Watcher{
		source:   source,
		handlers: handlers,
		logger:   logger,
	}

	// Subscribe first so a transition racing the attach is not lost.
	w.unsubs = []func(){
		source.OnMessage(w.handleMessage),
		source.OnConnect(w.handleConnect),
		source.OnDisconnect(w.handleDisconnect),
		source.OnGiveUp(w.handleGiveUp),
	}
	w.connected.Store(source.IsConnected())
	return w
}

func (w *Watcher) IsConnected() bool {
	return w.connected.Load()
}

func (w *Watcher) Connect(token string) {
	w.source.Connect(token)
}

func (w *Watcher) Disconnect() {
	w.source.Disconnect()
}

// ConnectFromStore connects with the credential held by store.
func (w *Watcher) ConnectFromStore(store credentials.Store) error {
	token, ok := store.Get()
	if !ok {
		return ErrNoCredential
	}
	w.source.Connect(token)
	return nil
}

// Detach removes every registration. Later calls do nothing.
func (w *Watcher) Detach() {
	w.mu.Lock()
	unsubs := w.unsubs
	w.unsubs = nil
	w.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (w *Watcher) handleMessage(n notify.Notification) {
	if w.handlers.OnNotification != nil {
		w.handlers.OnNotification(n)
	}

	switch n.Type {
	case notify.TypeOrderClaimed:
		if w.handlers.OnOrderClaimed == nil {
			return
		}
		p, err := n.OrderClaimed()
		if err != nil {
			w.logger.Warn("Dropping %s notification: %v", n.Type, err)
			return
		}
		w.handlers.OnOrderClaimed(*p)
	case notify.TypeOrderUpdated:
		if w.handlers.OnOrderUpdated == nil {
			return
		}
		p, err := n.OrderUpdated()
		if err != nil {
			w.logger.Warn("Dropping %s notification: %v", n.Type, err)
			return
		}
		w.handlers.OnOrderUpdated(*p)
	}
}

func (w *Watcher) handleConnect() {
	w.connected.Store(true)
	if w.handlers.OnConnected != nil {
		w.handlers.OnConnected()
	}
}

func (w *Watcher) handleDisconnect() {
	w.connected.Store(false)
	if w.handlers.OnDisconnected != nil {
		w.handlers.OnDisconnected()
	}
}

func (w *Watcher) handleGiveUp(attempts int) {
	if w.handlers.OnGiveUp != nil {
		w.handlers.OnGiveUp(attempts)
	}
}
