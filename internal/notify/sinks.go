package notify

import (
	"context"

	"github.com/ocakbasi/order-sync/pkg/logger"
)

// LogSink writes notifications to the log. The display daemon uses it
// for all three channels until real sound/toast/native drivers are
// plugged in by the rendering layer.
type LogSink struct {
	channel string
	logger  logger.Logger
}

// NewLogSink creates a LogSink labeled with the channel it stands in for
func NewLogSink(channel string, logger logger.Logger) *LogSink {
	return &LogSink{channel: channel, logger: logger}
}

// Deliver logs the notification
func (s *LogSink) Deliver(ctx context.Context, n Notification) error {
	s.logger.Info("NOTIFY",
		"channel", s.channel,
		"title", n.Title,
		"body", n.Body,
		"count", n.Count)
	return nil
}

// GrantedPermission always grants native permission. Used where the
// platform has no permission concept, such as a dedicated display box.
type GrantedPermission struct{}

// Request grants
func (GrantedPermission) Request(ctx context.Context) (bool, error) {
	return true, nil
}

// DeniedPermission always denies native permission. Used in tests and
// on platforms without a native notification facility.
type DeniedPermission struct{}

// Request denies
func (DeniedPermission) Request(ctx context.Context) (bool, error) {
	return false, nil
}
