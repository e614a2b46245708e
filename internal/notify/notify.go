// Package notify provides the fire-and-forget announcement sink for wound
// resolution outcomes.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/channel"
)

// Notifier posts a human-readable announcement. No return value is consumed
// by callers beyond the send error; delivery is best-effort.
type Notifier interface {
	Post(ctx context.Context, text string) error
}

// ChannelNotifier broadcasts announcements as chat envelopes on the shared
// channel, so every connected node sees them.
type ChannelNotifier struct {
	sender    string
	messenger channel.Messenger
	logger    *zap.Logger
}

// NewChannelNotifier creates a ChannelNotifier posting as the given sender name.
//
// Precondition: messenger and logger must be non-nil.
func NewChannelNotifier(sender string, messenger channel.Messenger, logger *zap.Logger) *ChannelNotifier {
	return &ChannelNotifier{sender: sender, messenger: messenger, logger: logger}
}

// Post implements Notifier. The announcement is also logged locally.
func (n *ChannelNotifier) Post(ctx context.Context, text string) error {
	n.logger.Info("announcement", zap.String("text", text))
	env, err := channel.ChatMessage{Sender: n.sender, Content: text}.Encode()
	if err != nil {
		return err
	}
	return n.messenger.Send(ctx, env)
}

// LogNotifier writes announcements to the structured log only; used headless
// and in tests.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
//
// Precondition: logger must be non-nil.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Post implements Notifier.
func (n *LogNotifier) Post(_ context.Context, text string) error {
	n.logger.Info("announcement", zap.String("text", text))
	return nil
}

var (
	_ Notifier = (*ChannelNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
