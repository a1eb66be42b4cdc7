// Package auth provides the Twitter OAuth2 login flow and the
// eligibility snapshot taken from the profile at login time.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/gatepass/gatepass/internal/model"
)

// Upstream errors. The system never retries an outbound call.
var (
	// ErrUpstreamTransport covers network failures and non-2xx
	// responses from the OAuth provider.
	ErrUpstreamTransport = errors.New("upstream transport error")
)

// Outbound client timeouts.
const (
	clientTimeout         = 30 * time.Second
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
)

const defaultUserURL = "https://api.twitter.com/2/users/me?user.fields=profile_image_url,public_metrics,created_at,verified"

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

// TwitterClient drives the authorization-code-with-PKCE flow and the
// profile fetch that follows it.
type TwitterClient struct {
	oauth   *oauth2.Config
	http    *http.Client
	userURL string
}

// NewTwitterClient creates a client for the Twitter OAuth2 API.
func NewTwitterClient(clientID, clientSecret, redirectURL string) *TwitterClient {
	return &TwitterClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     twitterEndpoint,
			Scopes:       []string{"tweet.read", "users.read", "offline.access"},
		},
		http:    newHTTPClient(),
		userURL: defaultUserURL,
	}
}

// SetBaseURL points the client at a different API host. Used in tests
// against httptest servers.
func (c *TwitterClient) SetBaseURL(base string) {
	c.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:  base + "/i/oauth2/authorize",
		TokenURL: base + "/2/oauth2/token",
	}
	c.userURL = base + "/2/users/me"
}

// NewVerifier returns a fresh PKCE code verifier.
func (c *TwitterClient) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the authorization URL for the given state and
// PKCE verifier.
func (c *TwitterClient) AuthCodeURL(state, verifier string) string {
	return c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for tokens.
func (c *TwitterClient) Exchange(ctx context.Context, code, verifier string) (*model.Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", ErrUpstreamTransport, err)
	}

	return &model.Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// twitterUser is the wire shape of GET /2/users/me.
type twitterUser struct {
	Data struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Username      string `json:"username"`
		AvatarURL     string `json:"profile_image_url"`
		CreatedAt     string `json:"created_at"`
		Verified      bool   `json:"verified"`
		PublicMetrics struct {
			Followers int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// FetchProfile retrieves the authenticated user's profile snapshot.
// Returns the platform user id (the identity) and the profile.
func (c *TwitterClient) FetchProfile(ctx context.Context, accessToken string) (string, *model.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: profile fetch: %v", ErrUpstreamTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("%w: profile fetch returned %d: %s", ErrUpstreamTransport, resp.StatusCode, body)
	}

	var wire twitterUser
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", nil, fmt.Errorf("%w: decode profile: %v", ErrUpstreamTransport, err)
	}
	if wire.Data.ID == "" {
		return "", nil, fmt.Errorf("%w: profile response missing user id", ErrUpstreamTransport)
	}

	createdAt, err := time.Parse(time.RFC3339, wire.Data.CreatedAt)
	if err != nil {
		// Account age is part of the eligibility rule; an unparsable
		// timestamp keeps the zero value and makes the account "old".
		createdAt = time.Time{}
	}

	return wire.Data.ID, &model.Profile{
		Name:      wire.Data.Name,
		Username:  wire.Data.Username,
		AvatarURL: wire.Data.AvatarURL,
		Followers: wire.Data.PublicMetrics.Followers,
		CreatedAt: createdAt,
		Verified:  wire.Data.Verified,
	}, nil
}

// newHTTPClient creates an HTTP client for calls to the OAuth provider.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
