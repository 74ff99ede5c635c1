package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"wappi2mqtt/notify"
)

const (
	NAMESPACE = "wappi"
	SUBSYSTEM = "notifications"

	OTHER_TYPE_LABEL = "other"
)

// NotificationMetrics exports the notification client lifecycle to Prometheus.
// It satisfies notify.Recorder.
type NotificationMetrics struct {
	connectsTotal     prometheus.Counter
	disconnectsTotal  prometheus.Counter
	reconnectsTotal   prometheus.Counter
	giveUpsTotal      prometheus.Counter
	messagesTotal     *prometheus.CounterVec
	decodeErrorsTotal prometheus.Counter
	dialErrorsTotal   prometheus.Counter
	reconnectDelay    prometheus.Histogram
	connected         prometheus.Gauge
}

var _ notify.Recorder = (*NotificationMetrics)(nil)

func NewNotificationMetrics(registry prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		connectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "connects_total",
			Help:      "Total number of established notification connections",
		}),
		disconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "disconnects_total",
			Help:      "Total number of notification disconnects, including failed dials",
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "reconnects_scheduled_total",
			Help:      "Total number of scheduled reconnect attempts",
		}),
		giveUpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "give_ups_total",
			Help:      "Total number of times the client stopped reconnecting",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "messages_total",
			Help:      "Total number of notifications received",
		}, []string{"type"}),
		decodeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "decode_errors_total",
			Help:      "Total number of dropped frames that were not valid notifications",
		}),
		dialErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "dial_errors_total",
			Help:      "Total number of failed connection attempts",
		}),
		reconnectDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "reconnect_delay_seconds",
			Help:      "Delay before each scheduled reconnect attempt",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "connected",
			Help:      "1 while the notification connection is open",
		}),
	}

	// Known types are exported at zero so rate() works before the first event.
	m.messagesTotal.WithLabelValues(string(notify.TypeOrderClaimed))
	m.messagesTotal.WithLabelValues(string(notify.TypeOrderUpdated))

	registry.MustRegister(
		m.connectsTotal,
		m.disconnectsTotal,
		m.reconnectsTotal,
		m.giveUpsTotal,
		m.messagesTotal,
		m.decodeErrorsTotal,
		m.dialErrorsTotal,
		m.reconnectDelay,
		m.connected,
	)
	return m
}

func (m *NotificationMetrics) Connected() {
	m.connectsTotal.Inc()
	m.connected.Set(1)
}

func (m *NotificationMetrics) Disconnected() {
	m.disconnectsTotal.Inc()
	m.connected.Set(0)
}

func (m *NotificationMetrics) DialFailed() {
	m.dialErrorsTotal.Inc()
}

func (m *NotificationMetrics) ReconnectScheduled(_ int, delay time.Duration) {
	m.reconnectsTotal.Inc()
	m.reconnectDelay.Observe(delay.Seconds())
}

func (m *NotificationMetrics) GaveUp() {
	m.giveUpsTotal.Inc()
}

// MessageReceived counts types outside the known set under "other" to keep
// label cardinality bounded.
func (m *NotificationMetrics) MessageReceived(t notify.Type) {
	label := OTHER_TYPE_LABEL
	switch t {
	case notify.TypeOrderClaimed, notify.TypeOrderUpdated:
		label = string(t)
	}
	m.messagesTotal.WithLabelValues(label).Inc()
}

func (m *NotificationMetrics) DecodeFailed() {
	m.decodeErrorsTotal.Inc()
}
