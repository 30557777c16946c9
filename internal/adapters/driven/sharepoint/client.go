package sharepoint

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Config keys read by the store.
const (
	ConfigKeySiteURL      = "sharepoint.site_url"
	ConfigKeyAuthMode     = "sharepoint.auth_mode"
	ConfigKeyUsername     = "sharepoint.username"
	ConfigKeyPassword     = "sharepoint.password"
	ConfigKeyTenantID     = "sharepoint.tenant_id"
	ConfigKeyClientID     = "sharepoint.client_id"
	ConfigKeyClientSecret = "sharepoint.client_secret"
)

// Auth modes accepted by ConfigKeyAuthMode.
const (
	AuthModeSTS = "sts"
	AuthModeAAD = "aad"
)

// Ensure Store implements the interface.
var _ driven.ContentStore = (*Store)(nil)

// Store builds authenticated repository sessions from configuration.
// Credentials are read lazily at Authenticate time so a config reload
// takes effect on the next notification.
type Store struct {
	config  driven.ConfigStore
	timeout time.Duration

	// stsEndpoint is overridable for tests; defaults to the online STS.
	stsEndpoint string
}

// NewStore creates a content store backed by the given configuration.
func NewStore(config driven.ConfigStore) *Store {
	return &Store{
		config:      config,
		timeout:     DefaultTimeout,
		stsEndpoint: defaultSTSEndpoint,
	}
}

// Authenticate builds a fresh session for the configured site.
// Sessions are not pooled; one is created per notification.
func (s *Store) Authenticate(ctx context.Context) (driven.Session, error) {
	siteURL := strings.TrimRight(s.config.GetString(ConfigKeySiteURL), "/")
	if siteURL == "" {
		return nil, fmt.Errorf("missing %s configuration", ConfigKeySiteURL)
	}
	if _, err := url.Parse(siteURL); err != nil {
		return nil, fmt.Errorf("invalid site URL %q: %w", siteURL, err)
	}

	mode := s.config.GetString(ConfigKeyAuthMode)
	if mode == "" {
		mode = AuthModeSTS
	}

	var client *http.Client
	var err error
	switch mode {
	case AuthModeSTS:
		client, err = s.stsClient(ctx, siteURL)
	case AuthModeAAD:
		client, err = s.aadClient(ctx, siteURL)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	return &Session{client: client, siteURL: siteURL}, nil
}

// stsClient signs in with username/password against the online STS and
// returns a client carrying the resulting session cookies.
func (s *Store) stsClient(ctx context.Context, siteURL string) (*http.Client, error) {
	username := s.config.GetString(ConfigKeyUsername)
	password := s.config.GetString(ConfigKeyPassword)
	if username == "" || password == "" {
		return nil, fmt.Errorf("sts auth: missing username or password: %w", domain.ErrAuthFailed)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar, Timeout: s.timeout}

	if err := stsLogin(ctx, client, s.stsEndpoint, siteURL, username, password); err != nil {
		return nil, err
	}
	return client, nil
}

// aadClient builds a client whose transport injects app-only bearer
// tokens from the client-credentials grant.
func (s *Store) aadClient(ctx context.Context, siteURL string) (*http.Client, error) {
	tenant := s.config.GetString(ConfigKeyTenantID)
	clientID := s.config.GetString(ConfigKeyClientID)
	secret := s.config.GetString(ConfigKeyClientSecret)
	if tenant == "" || clientID == "" || secret == "" {
		return nil, fmt.Errorf("aad auth: missing tenant, client id or secret: %w", domain.ErrAuthFailed)
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL %q: %w", siteURL, err)
	}

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant),
		Scopes:       []string{fmt.Sprintf("%s://%s/.default", site.Scheme, site.Host)},
	}

	client := cfg.Client(ctx)
	client.Timeout = s.timeout
	return client, nil
}
