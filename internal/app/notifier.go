package app

import (
	"context"

	"remindbot/internal/delivery"
	"remindbot/internal/flow"
	"remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
)

// chatNotifier adapts the chat transport to the delivery.Notifier contract
// and classifies transport errors at the boundary: network-class failures
// are marked transient, everything else is fatal for the loop.
type chatNotifier struct {
	adapter transport.Adapter
}

func (n chatNotifier) Send(ctx context.Context, ownerID int64, text string) error {
	err := n.adapter.SendText(ctx, transport.ChatTarget{ChatID: ownerID}, flow.ReminderPrefix+text, nil)
	if err == nil {
		return nil
	}
	if telegram.IsRetryable(err) {
		return delivery.Transient(err)
	}
	return err
}
