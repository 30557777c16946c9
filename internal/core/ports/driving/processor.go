package driving

import (
	"context"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

// NotificationProcessor converts one webhook notification into zero or
// more item updates.
type NotificationProcessor interface {
	// ProcessNotification authenticates, computes the change window for
	// the notification's list, and runs each newly added item through
	// recognition and writeback. Processing is strictly sequential:
	// item N's update is committed or abandoned before item N+1 begins.
	ProcessNotification(ctx context.Context, n domain.Notification) error
}

// SubscriptionManager manages the webhook registration on the
// configured list.
type SubscriptionManager interface {
	// Subscribe creates a webhook subscription delivering to
	// notificationURL and returns it with its generated client state.
	Subscribe(ctx context.Context, notificationURL string) (*domain.Subscription, error)

	// Renew extends the existing subscription's expiry.
	Renew(ctx context.Context) (*domain.Subscription, error)
}
