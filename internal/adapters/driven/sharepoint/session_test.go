package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Session{client: server.Client(), siteURL: server.URL}, server
}

func TestResolveList(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/_api/web/lists/getbytitle('Scans')")
		json.NewEncoder(w).Encode(listResponse{ID: "aaaa-bbbb", Title: "Scans"}) //nolint:errcheck
	}))

	list, err := session.ResolveList(context.Background(), "Scans")
	require.NoError(t, err)
	assert.Equal(t, "aaaa-bbbb", list.ID)
	assert.Equal(t, "Scans", list.Title)
}

func TestResolveListNotFound(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := session.ResolveList(context.Background(), "Missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestResolveListRemoteError(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "throttled", http.StatusServiceUnavailable)
	}))

	_, err := session.ResolveList(context.Background(), "Scans")

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)
	assert.Equal(t, "sharepoint", remoteErr.Service)
}

func changeJSON(listID string, at time.Time, odataType string, changeType, itemID int) map[string]any {
	return map[string]any{
		"odata.type": odataType,
		"ChangeType": changeType,
		"ItemId":     itemID,
		"ChangeToken": map[string]string{
			"StringValue": domain.NewChangeToken(listID, at).String(),
		},
	}
}

func TestQueryChangesWindowBoundary(t *testing.T) {
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	window := domain.ChangeWindow{ListID: "aaaa-bbbb", Start: end.Add(-time.Minute), End: end}

	var gotQuery map[string]any
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{ //nolint:errcheck
			changeJSON("aaaa-bbbb", end.Add(-61*time.Second), "SP.ChangeItem", wireChangeAdd, 1),
			changeJSON("aaaa-bbbb", end.Add(-30*time.Second), "SP.ChangeItem", wireChangeAdd, 2),
			changeJSON("aaaa-bbbb", end.Add(time.Second), "SP.ChangeItem", wireChangeAdd, 3),
		}})
	}))

	records, err := session.QueryChanges(context.Background(), &domain.List{ID: "aaaa-bbbb"}, window)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].ItemID)
	assert.True(t, records[0].IsItemAdd())

	// The server query must be bounded by the window's tokens.
	query := gotQuery["query"].(map[string]any)
	assert.Equal(t, true, query["Item"])
	assert.Equal(t, true, query["Add"])
	start := query["ChangeTokenStart"].(map[string]any)["StringValue"].(string)
	assert.Equal(t, window.StartToken().String(), start)
}

func TestQueryChangesMapsKindsAndOps(t *testing.T) {
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	window := domain.ChangeWindow{ListID: "l", Start: end.Add(-time.Minute), End: end}
	at := end.Add(-10 * time.Second)

	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{ //nolint:errcheck
			changeJSON("l", at, "SP.ChangeItem", wireChangeAdd, 1),
			changeJSON("l", at, "SP.ChangeItem", wireChangeUpdate, 2),
			changeJSON("l", at, "SP.ChangeItem", wireChangeDeleteObject, 3),
			changeJSON("l", at, "SP.ChangeList", wireChangeAdd, 0),
			changeJSON("l", at, "SP.ChangeSomethingElse", 99, 0),
		}})
	}))

	records, err := session.QueryChanges(context.Background(), &domain.List{ID: "l"}, window)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.True(t, records[0].IsItemAdd())
	assert.Equal(t, domain.ChangeOpUpdate, records[1].Op)
	assert.Equal(t, domain.ChangeOpDelete, records[2].Op)
	assert.Equal(t, domain.ChangeKindList, records[3].Kind)
	assert.Equal(t, domain.ChangeKindUnknown, records[4].Kind)
	assert.Equal(t, domain.ChangeOpUnknown, records[4].Op)

	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].IsItemAdd(), "record %d", i)
	}
}

func TestFetchFileBytes(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE}
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/items(7)/File/$value")
		w.Write(payload) //nolint:errcheck
	}))

	data, err := session.FetchFileBytes(context.Background(), &domain.List{ID: "l"}, 7)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchFileBytesNotFound(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := session.FetchFileBytes(context.Background(), &domain.List{ID: "l"}, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateItemMerge(t *testing.T) {
	var gotFields map[string]string
	var gotHeaders http.Header
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_api/contextinfo" {
			json.NewEncoder(w).Encode(map[string]string{"FormDigestValue": "digest-1"}) //nolint:errcheck
			return
		}
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotFields))
		w.WriteHeader(http.StatusNoContent)
	}))

	fields := map[string]string{"Language": "en", "OCRText": "Hi "}
	err := session.UpdateItem(context.Background(), &domain.List{ID: "l"}, 7, fields)
	require.NoError(t, err)

	assert.Equal(t, fields, gotFields)
	assert.Equal(t, "MERGE", gotHeaders.Get("X-HTTP-Method"))
	assert.Equal(t, "*", gotHeaders.Get("IF-MATCH"))
	assert.Equal(t, "digest-1", gotHeaders.Get("X-RequestDigest"))
}

func TestUpdateItemReusesDigest(t *testing.T) {
	digestCalls := 0
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_api/contextinfo" {
			digestCalls++
			json.NewEncoder(w).Encode(map[string]string{"FormDigestValue": "d"}) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	list := &domain.List{ID: "l"}
	require.NoError(t, session.UpdateItem(context.Background(), list, 1, map[string]string{"Language": "en"}))
	require.NoError(t, session.UpdateItem(context.Background(), list, 2, map[string]string{"Language": "fr"}))
	assert.Equal(t, 1, digestCalls)
}

func TestCreateSubscription(t *testing.T) {
	expires := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var gotPayload map[string]any
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_api/contextinfo" {
			json.NewEncoder(w).Encode(map[string]string{"FormDigestValue": "d"}) //nolint:errcheck
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":                 "sub-123",
			"expirationDateTime": expires.Format(time.RFC3339),
		})
	}))

	sub := domain.Subscription{
		ClientState:        "state-1",
		NotificationURL:    "https://hook.example.com/",
		ExpirationDateTime: expires,
	}
	created, err := session.CreateSubscription(context.Background(), &domain.List{ID: "l"}, sub)
	require.NoError(t, err)

	assert.Equal(t, "sub-123", created.ID)
	assert.Equal(t, "state-1", created.ClientState)
	assert.Equal(t, "https://hook.example.com/", gotPayload["notificationUrl"])
	assert.Equal(t, "state-1", gotPayload["clientState"])
}

func TestRenewSubscriptionNotFound(t *testing.T) {
	session, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_api/contextinfo" {
			json.NewEncoder(w).Encode(map[string]string{"FormDigestValue": "d"}) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	err := session.RenewSubscription(context.Background(), &domain.List{ID: "l"}, "gone", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Store / auth tests ---

type storeMockConfig struct {
	data map[string]string
}

func (m *storeMockConfig) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}
func (m *storeMockConfig) GetString(key string) string { return m.data[key] }
func (m *storeMockConfig) GetInt(string) int           { return 0 }
func (m *storeMockConfig) GetBool(string) bool         { return false }
func (m *storeMockConfig) Set(key string, value any) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}
func (m *storeMockConfig) Load() error { return nil }
func (m *storeMockConfig) Path() string {
	return ""
}

func TestAuthenticateUnknownMode(t *testing.T) {
	store := NewStore(&storeMockConfig{data: map[string]string{
		ConfigKeySiteURL:  "https://contoso.example.com/sites/docs",
		ConfigKeyAuthMode: "kerberos",
	}})

	_, err := store.Authenticate(context.Background())
	assert.ErrorContains(t, err, "unknown auth mode")
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	store := NewStore(&storeMockConfig{data: map[string]string{
		ConfigKeySiteURL: "https://contoso.example.com/sites/docs",
	}})

	_, err := store.Authenticate(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestAuthenticateMissingSiteURL(t *testing.T) {
	store := NewStore(&storeMockConfig{data: map[string]string{}})

	_, err := store.Authenticate(context.Background())
	assert.ErrorContains(t, err, "sharepoint.site_url")
}

func stsSuccessBody(token string) string {
	return `<S:Envelope xmlns:S="http://www.w3.org/2003/05/soap-envelope">
  <S:Body>
    <wst:RequestSecurityTokenResponse xmlns:wst="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wst:RequestedSecurityToken>
        <wsse:BinarySecurityToken xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">` + token + `</wsse:BinarySecurityToken>
      </wst:RequestedSecurityToken>
    </wst:RequestSecurityTokenResponse>
  </S:Body>
</S:Envelope>`
}

func TestSTSLoginSuccess(t *testing.T) {
	var signinBody string
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_forms/default.aspx" {
			body, _ := io.ReadAll(r.Body)
			signinBody = string(body)
			http.SetCookie(w, &http.Cookie{Name: "FedAuth", Value: "cookie"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer site.Close()

	sts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, stsSuccessBody("binary-token"))
	}))
	defer sts.Close()

	store := NewStore(&storeMockConfig{data: map[string]string{
		ConfigKeySiteURL:  site.URL,
		ConfigKeyUsername: "user@contoso.example.com",
		ConfigKeyPassword: "hunter2",
	}})
	store.stsEndpoint = sts.URL

	session, err := store.Authenticate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, "binary-token", signinBody)
}

func TestSTSLoginRejected(t *testing.T) {
	sts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<S:Envelope xmlns:S="http://www.w3.org/2003/05/soap-envelope">
  <S:Body>
    <S:Fault>
      <S:Reason><S:Text xml:lang="en-US">Invalid credentials</S:Text></S:Reason>
    </S:Fault>
  </S:Body>
</S:Envelope>`)
	}))
	defer sts.Close()

	store := NewStore(&storeMockConfig{data: map[string]string{
		ConfigKeySiteURL:  "https://contoso.example.com/sites/docs",
		ConfigKeyUsername: "user",
		ConfigKeyPassword: "wrong",
	}})
	store.stsEndpoint = sts.URL

	_, err := store.Authenticate(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.ErrorContains(t, err, "Invalid credentials")
}
