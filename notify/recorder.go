package notify

import "time"

// Recorder observes client lifecycle events, typically for metrics. Calls are
// made while the client holds its lock and must not block or call back into it.
type Recorder interface {
	Connected()
	Disconnected()
	DialFailed()
	ReconnectScheduled(attempt int, delay time.Duration)
	GaveUp()
	MessageReceived(t Type)
	DecodeFailed()
}

type nopRecorder struct{}

func (nopRecorder) Connected()                            {}
func (nopRecorder) Disconnected()                         {}
func (nopRecorder) DialFailed()                           {}
func (nopRecorder) ReconnectScheduled(int, time.Duration) {}
func (nopRecorder) GaveUp()                               {}
func (nopRecorder) MessageReceived(Type)                  {}
func (nopRecorder) DecodeFailed()                         {}
