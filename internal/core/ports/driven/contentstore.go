package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

// ContentStore authenticates against the document repository.
// A fresh Session is created per notification; sessions are not pooled
// or reused across notifications.
type ContentStore interface {
	// Authenticate builds an authenticated session against the
	// configured site. Returns domain.ErrAuthFailed (possibly wrapped
	// in a *domain.RemoteError) when credentials are rejected.
	Authenticate(ctx context.Context) (Session, error)
}

// Session is an authenticated connection to one site collection.
// Every call is a synchronous network round-trip; none is retried here.
type Session interface {
	// ResolveList finds a list by its display name.
	// Returns domain.ErrNotFound if no such list exists.
	ResolveList(ctx context.Context, title string) (*domain.List, error)

	// QueryChanges returns changes strictly within [window.Start,
	// window.End), restricted to item-add changes.
	QueryChanges(ctx context.Context, list *domain.List, window domain.ChangeWindow) ([]domain.ChangeRecord, error)

	// FetchFileBytes drains the item's attached file into a contiguous
	// buffer. Returns domain.ErrNotFound if the item has no file.
	FetchFileBytes(ctx context.Context, list *domain.List, itemID int) ([]byte, error)

	// UpdateItem writes metadata fields on an item. Best-effort
	// last-writer-wins; concurrent mutations are not detected.
	UpdateItem(ctx context.Context, list *domain.List, itemID int, fields map[string]string) error

	// CreateSubscription registers a webhook subscription on the list
	// and returns it with the service-assigned ID filled in.
	CreateSubscription(ctx context.Context, list *domain.List, sub domain.Subscription) (*domain.Subscription, error)

	// RenewSubscription extends an existing subscription's expiry.
	RenewSubscription(ctx context.Context, list *domain.List, subscriptionID string, expires time.Time) error
}
