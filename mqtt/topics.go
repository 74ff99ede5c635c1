package mqtt

import "strings"

// Topics lays out the bridge topic tree under Prefix.
type Topics struct {
	Prefix string
}

func (t Topics) State() string {
	return t.Prefix + "/state"
}

func (t Topics) Availability() string {
	return t.Prefix + "/availability"
}

func (t Topics) Commands() string {
	return t.Prefix + "/commands"
}

func (t Topics) Notification(kind string) string {
	return t.Prefix + "/notifications/" + Segment(kind)
}

func (t Topics) OrderClaimed(orderID string) string {
	return t.Prefix + "/orders/" + Segment(orderID) + "/claimed"
}

func (t Topics) OrderStatus(orderID string) string {
	return t.Prefix + "/orders/" + Segment(orderID) + "/status"
}

var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", "\x00", "")

// Segment makes s usable as one topic level: separators and wildcards become
// underscores and an empty value becomes "unknown".
func Segment(s string) string {
	s = segmentReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
