package domain

import "time"

// Notification is one entry of an inbound webhook batch. The repository
// sends it when a watched list changes; it carries enough identity to
// look up the actual delta but not the delta itself.
type Notification struct {
	// SubscriptionID identifies the webhook subscription that fired.
	SubscriptionID string `json:"subscriptionId"`

	// ClientState echoes the opaque state provided at subscription time.
	ClientState string `json:"clientState"`

	// ExpirationDateTime is when the subscription lapses.
	ExpirationDateTime time.Time `json:"expirationDateTime"`

	// Resource is the opaque identifier of the changed list.
	Resource string `json:"resource"`

	// TenantID identifies the hosting tenant.
	TenantID string `json:"tenantId"`

	// SiteURL is the server-relative URL of the site.
	SiteURL string `json:"siteUrl"`

	// WebID identifies the web containing the list.
	WebID string `json:"webId"`
}

// NotificationBatch is the JSON envelope delivered per webhook call.
type NotificationBatch struct {
	Value []Notification `json:"value"`
}

// Subscription is a webhook registration on a list. The repository
// delivers notifications to NotificationURL until ExpirationDateTime.
type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	ClientState        string    `json:"clientState,omitempty"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	NotificationURL    string    `json:"notificationUrl,omitempty"`
	Resource           string    `json:"resource,omitempty"`
}
