package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "wappi"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"state", topics.State(), "wappi/state"},
		{"availability", topics.Availability(), "wappi/availability"},
		{"commands", topics.Commands(), "wappi/commands"},
		{"notification", topics.Notification("order_claimed"), "wappi/notifications/order_claimed"},
		{"order claimed", topics.OrderClaimed("o-1"), "wappi/orders/o-1/claimed"},
		{"order status", topics.OrderStatus("o-1"), "wappi/orders/o-1/status"},
		{"separator in id", topics.OrderStatus("a/b"), "wappi/orders/a_b/status"},
		{"wildcards in type", topics.Notification("x+#"), "wappi/notifications/x__"},
		{"empty id", topics.OrderClaimed(""), "wappi/orders/unknown/claimed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, tt.got)
			}
		})
	}
}
