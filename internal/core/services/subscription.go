package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driving"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// Config keys used by the subscription service.
const (
	ConfigKeySubscriptionID = "webhook.subscription_id"
	ConfigKeyClientState    = "webhook.client_state"
)

// DefaultSubscriptionTTL is how far in the future new and renewed
// subscriptions expire. The repository caps webhook subscriptions at
// six months; stay under it.
const DefaultSubscriptionTTL = 90 * 24 * time.Hour

// Ensure SubscriptionService implements the interface.
var _ driving.SubscriptionManager = (*SubscriptionService)(nil)

// SubscriptionService creates and renews the webhook subscription on
// the configured list, persisting its identity in configuration.
type SubscriptionService struct {
	store    driven.ContentStore
	config   driven.ConfigStore
	listName string
	ttl      time.Duration
	now      func() time.Time
}

// NewSubscriptionService creates a subscription service for the named list.
func NewSubscriptionService(
	store driven.ContentStore,
	config driven.ConfigStore,
	listName string,
) *SubscriptionService {
	return &SubscriptionService{
		store:    store,
		config:   config,
		listName: listName,
		ttl:      DefaultSubscriptionTTL,
		now:      time.Now,
	}
}

// Subscribe registers a webhook subscription delivering to
// notificationURL. A fresh client state is generated and stored so
// inbound notifications can be checked against it.
func (s *SubscriptionService) Subscribe(ctx context.Context, notificationURL string) (*domain.Subscription, error) {
	session, err := s.store.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	list, err := session.ResolveList(ctx, s.listName)
	if err != nil {
		return nil, fmt.Errorf("resolve list %q: %w", s.listName, err)
	}

	sub := domain.Subscription{
		ClientState:        uuid.NewString(),
		ExpirationDateTime: s.now().UTC().Add(s.ttl),
		NotificationURL:    notificationURL,
	}

	created, err := session.CreateSubscription(ctx, list, sub)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	if err := s.config.Set(ConfigKeySubscriptionID, created.ID); err != nil {
		return nil, fmt.Errorf("store subscription id: %w", err)
	}
	if err := s.config.Set(ConfigKeyClientState, sub.ClientState); err != nil {
		return nil, fmt.Errorf("store client state: %w", err)
	}

	logger.Info("Subscribed list %q until %s (subscription %s)",
		s.listName, created.ExpirationDateTime.Format(time.RFC3339), created.ID)
	return created, nil
}

// Renew extends the stored subscription's expiry by the service TTL.
func (s *SubscriptionService) Renew(ctx context.Context) (*domain.Subscription, error) {
	subID := s.config.GetString(ConfigKeySubscriptionID)
	if subID == "" {
		return nil, fmt.Errorf("renew: no stored subscription: %w", domain.ErrNotFound)
	}

	session, err := s.store.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	list, err := session.ResolveList(ctx, s.listName)
	if err != nil {
		return nil, fmt.Errorf("resolve list %q: %w", s.listName, err)
	}

	expires := s.now().UTC().Add(s.ttl)
	if err := session.RenewSubscription(ctx, list, subID, expires); err != nil {
		return nil, fmt.Errorf("renew subscription: %w", err)
	}

	logger.Info("Renewed subscription %s until %s", subID, expires.Format(time.RFC3339))
	return &domain.Subscription{
		ID:                 subID,
		ExpirationDateTime: expires,
	}, nil
}
