package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// acceptJSON asks the REST API for JSON with the odata.type
// discriminator kept on change entries.
const acceptJSON = "application/json;odata=minimalmetadata"

// Numeric change types on the wire.
const (
	wireChangeAdd          = 1
	wireChangeUpdate       = 2
	wireChangeDeleteObject = 3
)

// Ensure Session implements the interface.
var _ driven.Session = (*Session)(nil)

// Session is one authenticated connection to a site collection.
// It lives for the duration of a single notification.
type Session struct {
	client  *http.Client
	siteURL string
	digest  string
}

// listResponse is the list metadata shape returned by the API.
type listResponse struct {
	ID    string `json:"Id"`
	Title string `json:"Title"`
}

// changeEntry is one element of a getchanges response.
type changeEntry struct {
	OdataType   string `json:"odata.type"`
	ChangeType  int    `json:"ChangeType"`
	ItemID      int    `json:"ItemId"`
	ChangeToken struct {
		StringValue string `json:"StringValue"`
	} `json:"ChangeToken"`
}

// ResolveList finds a list by its display name.
func (s *Session) ResolveList(ctx context.Context, title string) (*domain.List, error) {
	endpoint := fmt.Sprintf("%s/_api/web/lists/getbytitle('%s')?$select=Id,Title",
		s.siteURL, url.PathEscape(title))

	resp, err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, notFound(fmt.Sprintf("list %q", title))
	case resp.StatusCode != http.StatusOK:
		return nil, remoteError(resp)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: list metadata: %v", domain.ErrMalformedResponse, err)
	}
	if list.ID == "" {
		return nil, fmt.Errorf("%w: list metadata missing Id", domain.ErrMalformedResponse)
	}
	return &domain.List{ID: list.ID, Title: list.Title}, nil
}

// QueryChanges returns item-add changes strictly within
// [window.Start, window.End). The token-bounded server query is
// re-filtered client-side against each record's own token.
func (s *Session) QueryChanges(ctx context.Context, list *domain.List, window domain.ChangeWindow) ([]domain.ChangeRecord, error) {
	endpoint := fmt.Sprintf("%s/_api/web/lists(guid'%s')/getchanges", s.siteURL, list.ID)

	query := map[string]any{
		"query": map[string]any{
			"Item":             true,
			"Add":              true,
			"ChangeTokenStart": map[string]string{"StringValue": window.StartToken().String()},
			"ChangeTokenEnd":   map[string]string{"StringValue": window.EndToken().String()},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode change query: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), map[string]string{
		"Content-Type": acceptJSON,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var envelope struct {
		Value []changeEntry `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: change list: %v", domain.ErrMalformedResponse, err)
	}

	records := make([]domain.ChangeRecord, 0, len(envelope.Value))
	for _, entry := range envelope.Value {
		record := entry.toRecord()
		if record.Token.ListID != "" && !window.Contains(record.Token.Time) {
			logger.Debug("Dropping out-of-window change for item %d at %s",
				record.ItemID, record.Token.Time.Format(time.RFC3339Nano))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// toRecord maps a wire entry onto the domain discriminated record.
func (e changeEntry) toRecord() domain.ChangeRecord {
	record := domain.ChangeRecord{ItemID: e.ItemID}

	switch e.OdataType {
	case "SP.ChangeItem":
		record.Kind = domain.ChangeKindItem
	case "SP.ChangeList":
		record.Kind = domain.ChangeKindList
	}

	switch e.ChangeType {
	case wireChangeAdd:
		record.Op = domain.ChangeOpAdd
	case wireChangeUpdate:
		record.Op = domain.ChangeOpUpdate
	case wireChangeDeleteObject:
		record.Op = domain.ChangeOpDelete
	}

	if token, err := domain.ParseChangeToken(e.ChangeToken.StringValue); err == nil {
		record.Token = token
	}
	return record
}

// FetchFileBytes drains the item's attached file into memory.
// The whole file must fit in a contiguous buffer; there is no
// streaming path.
func (s *Session) FetchFileBytes(ctx context.Context, list *domain.List, itemID int) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items(%d)/File/$value",
		s.siteURL, list.ID, itemID)

	resp, err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, notFound(fmt.Sprintf("file for item %d", itemID))
	case resp.StatusCode != http.StatusOK:
		return nil, remoteError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file for item %d: %w", itemID, err)
	}
	return data, nil
}

// UpdateItem merges metadata fields onto an item. Last-writer-wins:
// IF-MATCH * skips version checking on purpose.
func (s *Session) UpdateItem(ctx context.Context, list *domain.List, itemID int, fields map[string]string) error {
	digest, err := s.requestDigest(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/_api/web/lists(guid'%s')/items(%d)", s.siteURL, list.ID, itemID)

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode item fields: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), map[string]string{
		"Content-Type":    acceptJSON,
		"X-HTTP-Method":   "MERGE",
		"IF-MATCH":        "*",
		"X-RequestDigest": digest,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return notFound(fmt.Sprintf("item %d", itemID))
	}
	if resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// CreateSubscription registers a webhook subscription on the list.
func (s *Session) CreateSubscription(ctx context.Context, list *domain.List, sub domain.Subscription) (*domain.Subscription, error) {
	digest, err := s.requestDigest(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/_api/web/lists(guid'%s')/subscriptions", s.siteURL, list.ID)

	payload := map[string]any{
		"resource":           fmt.Sprintf("%s/_api/web/lists(guid'%s')", s.siteURL, list.ID),
		"notificationUrl":    sub.NotificationURL,
		"expirationDateTime": sub.ExpirationDateTime.UTC().Format(time.RFC3339),
		"clientState":        sub.ClientState,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode subscription: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), map[string]string{
		"Content-Type":    acceptJSON,
		"X-RequestDigest": digest,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var created struct {
		ID                 string    `json:"id"`
		ClientState        string    `json:"clientState"`
		ExpirationDateTime time.Time `json:"expirationDateTime"`
		Resource           string    `json:"resource"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: subscription: %v", domain.ErrMalformedResponse, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: subscription missing id", domain.ErrMalformedResponse)
	}

	return &domain.Subscription{
		ID:                 created.ID,
		ClientState:        sub.ClientState,
		ExpirationDateTime: created.ExpirationDateTime,
		NotificationURL:    sub.NotificationURL,
		Resource:           created.Resource,
	}, nil
}

// RenewSubscription extends an existing subscription's expiry.
func (s *Session) RenewSubscription(ctx context.Context, list *domain.List, subscriptionID string, expires time.Time) error {
	digest, err := s.requestDigest(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/_api/web/lists(guid'%s')/subscriptions('%s')",
		s.siteURL, list.ID, subscriptionID)

	body, err := json.Marshal(map[string]string{
		"expirationDateTime": expires.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode renewal: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), map[string]string{
		"Content-Type":    acceptJSON,
		"X-HTTP-Method":   "PATCH",
		"X-RequestDigest": digest,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return notFound(fmt.Sprintf("subscription %s", subscriptionID))
	}
	if resp.StatusCode >= 300 {
		return remoteError(resp)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// requestDigest fetches (once per session) the form digest required on
// write calls.
func (s *Session) requestDigest(ctx context.Context) (string, error) {
	if s.digest != "" {
		return s.digest, nil
	}

	endpoint := s.siteURL + "/_api/contextinfo"
	resp, err := s.do(ctx, http.MethodPost, endpoint, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", remoteError(resp)
	}

	var info struct {
		FormDigestValue string `json:"FormDigestValue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: contextinfo: %v", domain.ErrMalformedResponse, err)
	}
	if info.FormDigestValue == "" {
		return "", fmt.Errorf("%w: contextinfo missing digest", domain.ErrMalformedResponse)
	}

	s.digest = info.FormDigestValue
	return s.digest, nil
}

// do issues one request with the session's client and default headers.
func (s *Session) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}
