package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAuthCodeURLCarriesPKCEChallenge(t *testing.T) {
	c := NewTwitterClient("client-id", "client-secret", "http://localhost:8080/auth/twitter/callback")
	verifier := c.NewVerifier()

	raw := c.AuthCodeURL("state-123", verifier)
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth URL: %v", err)
	}

	q := parsed.Query()
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("code_challenge") == "" {
		t.Error("missing code_challenge")
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q, want S256", q.Get("code_challenge_method"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "users.read") {
		t.Errorf("scope = %q, want users.read included", q.Get("scope"))
	}
}

func TestExchangeAndFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.Form.Get("code") != "auth-code" {
			t.Errorf("code = %q", r.Form.Get("code"))
		}
		if r.Form.Get("code_verifier") == "" {
			t.Error("missing code_verifier")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer","expires_in":7200}`)
	})
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{
			"id":"12345",
			"name":"Alice",
			"username":"alice",
			"profile_image_url":"https://pbs.example/alice.png",
			"created_at":"2020-01-15T10:00:00Z",
			"verified":true,
			"public_metrics":{"followers_count":250}
		}}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewTwitterClient("client-id", "client-secret", "http://localhost:8080/auth/twitter/callback")
	c.SetBaseURL(srv.URL)
	ctx := context.Background()

	tokens, err := c.Exchange(ctx, "auth-code", c.NewVerifier())
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tokens.AccessToken != "at-1" || tokens.RefreshToken != "rt-1" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}

	identity, profile, err := c.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if identity != "12345" {
		t.Errorf("identity = %q", identity)
	}
	if profile.Username != "alice" || profile.Followers != 250 || !profile.Verified {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.CreatedAt.Year() != 2020 {
		t.Errorf("created_at = %v", profile.CreatedAt)
	}
}

func TestFetchProfileUpstreamErrors(t *testing.T) {
	t.Run("non_2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewTwitterClient("id", "secret", "http://localhost/cb")
		c.SetBaseURL(srv.URL)

		_, _, err := c.FetchProfile(context.Background(), "at-1")
		if !errors.Is(err, ErrUpstreamTransport) {
			t.Fatalf("expected ErrUpstreamTransport, got %v", err)
		}
	})

	t.Run("missing_user_id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{}}`)
		}))
		defer srv.Close()

		c := NewTwitterClient("id", "secret", "http://localhost/cb")
		c.SetBaseURL(srv.URL)

		_, _, err := c.FetchProfile(context.Background(), "at-1")
		if !errors.Is(err, ErrUpstreamTransport) {
			t.Fatalf("expected ErrUpstreamTransport, got %v", err)
		}
	})

	t.Run("connection_refused", func(t *testing.T) {
		c := NewTwitterClient("id", "secret", "http://localhost/cb")
		c.SetBaseURL("http://127.0.0.1:1")

		_, _, err := c.FetchProfile(context.Background(), "at-1")
		if !errors.Is(err, ErrUpstreamTransport) {
			t.Fatalf("expected ErrUpstreamTransport, got %v", err)
		}
	})
}
