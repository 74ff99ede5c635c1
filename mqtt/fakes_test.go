package mqtt

import (
	"errors"
	"sync"

	"wappi2mqtt/credentials"
)

type published struct {
	topic   string
	payload string
	qos     byte
	retain  bool
}

type fakeMQTT struct {
	mu        sync.Mutex
	connected bool
	failNext  error
	messages  []published
}

func (f *fakeMQTT) Connect() error    { return nil }
func (f *fakeMQTT) Disconnect() error { return nil }

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retain bool, maxRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.messages = append(f.messages, published{topic, string(payload), qos, retain})
	return nil
}

func (f *fakeMQTT) Subscribe(topic string, handler MessageHandler) error {
	return errors.New("not supported")
}

func (f *fakeMQTT) Unsubscribe(topic string) error {
	return errors.New("not supported")
}

func (f *fakeMQTT) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

type fakeController struct {
	tokens      []string
	disconnects int
}

func (c *fakeController) Disconnect() {
	c.disconnects++
}

func (c *fakeController) ConnectFromStore(store credentials.Store) error {
	token, ok := store.Get()
	if !ok {
		return errors.New("no stored credential")
	}
	c.tokens = append(c.tokens, token)
	return nil
}
