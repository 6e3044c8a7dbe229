package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// KindRoundSettled is emitted once per settled wager round.
	KindRoundSettled = "round.settled"
	// KindBankInitialized is emitted when a bank is created and funded.
	KindBankInitialized = "bank.initialized"
	// KindNativeTransfer is emitted to the receiver of a wallet transfer.
	KindNativeTransfer = "wallet.transfer_received"
)

// Message describes a notification payload. Key groups related messages
// (the bank id) so consumers see them in order.
type Message struct {
	Kind        string    `json:"kind"`
	Key         string    `json:"key"`
	Destination string    `json:"destination,omitempty"`
	Body        string    `json:"body"`
	Data        any       `json:"data,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "key", message.Key, "destination", message.Destination, "body", message.Body)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all notifiers even when one fails.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
