// Package leaderboard queries the loyalty-points ranking service
// over GraphQL and checks addresses against the first page.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Upstream errors. Any failure is final; nothing is retried.
var (
	// ErrUpstreamTransport covers network failures and non-2xx responses.
	ErrUpstreamTransport = errors.New("upstream transport error")
	// ErrUpstreamProtocol covers a non-empty GraphQL errors array.
	ErrUpstreamProtocol = errors.New("upstream protocol error")
)

// Outbound client timeouts.
const (
	clientTimeout         = 30 * time.Second
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
)

const ranksQuery = `query LoyaltyRanks($spaceId: Int!, $sprintId: String, $cursorAfter: String) {
  spaceLoyaltyPointsRanks(spaceId: $spaceId, sprintId: $sprintId, cursorAfter: $cursorAfter) {
    totalCount
    pageInfo {
      hasNextPage
      endCursor
    }
    list {
      rank
      points
      address {
        username
        address
        avatar
      }
    }
  }
}`

// Client issues loyalty-rank queries with a bearer credential.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// New creates a leaderboard client for the given GraphQL endpoint.
func New(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http: &http.Client{
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
		},
	}
}

// Entry is one row of the ranked list.
type Entry struct {
	Rank     int    `json:"rank"`
	Points   int    `json:"points"`
	Username string `json:"username"`
	Address  string `json:"address"`
	Avatar   string `json:"avatar"`
}

// Page is the first page of the ranked list. Pagination metadata is
// carried but nothing walks past the first page.
type Page struct {
	TotalCount  int
	HasNextPage bool
	EndCursor   string
	Entries     []Entry
}

// wire shapes for the GraphQL response.
type ranksResponse struct {
	Data struct {
		Ranks struct {
			TotalCount int `json:"totalCount"`
			PageInfo   struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			List []struct {
				Rank    int `json:"rank"`
				Points  int `json:"points"`
				Address struct {
					Username string `json:"username"`
					Address  string `json:"address"`
					Avatar   string `json:"avatar"`
				} `json:"address"`
			} `json:"list"`
		} `json:"spaceLoyaltyPointsRanks"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchFirstPage issues one query for the first page of the ranked
// list identified by spaceID, optionally narrowed to a sprint.
func (c *Client) FetchFirstPage(ctx context.Context, spaceID int, sprintID string) (*Page, error) {
	variables := map[string]any{
		"spaceId":     spaceID,
		"cursorAfter": nil,
	}
	if sprintID != "" {
		variables["sprintId"] = sprintID
	}

	body, err := json.Marshal(map[string]any{
		"query":     ranksQuery,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamTransport, resp.StatusCode, snippet)
	}

	var wire ranksResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamTransport, err)
	}
	if len(wire.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamProtocol, wire.Errors[0].Message)
	}

	page := &Page{
		TotalCount:  wire.Data.Ranks.TotalCount,
		HasNextPage: wire.Data.Ranks.PageInfo.HasNextPage,
		EndCursor:   wire.Data.Ranks.PageInfo.EndCursor,
		Entries:     make([]Entry, 0, len(wire.Data.Ranks.List)),
	}
	for _, row := range wire.Data.Ranks.List {
		page.Entries = append(page.Entries, Entry{
			Rank:     row.Rank,
			Points:   row.Points,
			Username: row.Address.Username,
			Address:  row.Address.Address,
			Avatar:   row.Address.Avatar,
		})
	}

	return page, nil
}

// CheckAddress fetches the first page and returns one boolean per
// entry, reporting whether that entry's address equals the target,
// case-insensitively. A single found/not-found decision would likely
// be more useful; see FindEntry. Kept as the per-entry vector pending
// product confirmation.
func (c *Client) CheckAddress(ctx context.Context, spaceID int, sprintID, address string) ([]bool, error) {
	page, err := c.FetchFirstPage(ctx, spaceID, sprintID)
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(address)
	matches := make([]bool, len(page.Entries))
	for i, entry := range page.Entries {
		matches[i] = strings.ToLower(entry.Address) == target
	}

	return matches, nil
}

// FindEntry returns the first-page entry whose address matches,
// case-insensitively, or nil if none does.
func (c *Client) FindEntry(ctx context.Context, spaceID int, sprintID, address string) (*Entry, error) {
	page, err := c.FetchFirstPage(ctx, spaceID, sprintID)
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(address)
	for i := range page.Entries {
		if strings.ToLower(page.Entries[i].Address) == target {
			return &page.Entries[i], nil
		}
	}

	return nil, nil
}
