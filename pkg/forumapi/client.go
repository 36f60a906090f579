// Package forumapi is a client for the third-party forum API the collector
// harvests from: OAuth2 password-grant token exchange plus the
// hot/new/top/rising/controversial listing endpoints.
package forumapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wisbric/scoutwell/pkg/credential"
	"github.com/wisbric/scoutwell/pkg/sampling"
)

// Post is one listing entry as returned by the forum API, before it is
// translated into a rawpost.RawPost.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"selftext"`
	Author    any    `json:"author"` // string, or {"name": "..."} depending on endpoint
	Score     int    `json:"score"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"created_utc"`
	Name      string `json:"name"` // pagination cursor ("after")
}

// Listing is one page of results plus the cursor for the next page.
type Listing struct {
	Posts     []Post
	AfterName string
}

// RateLimitedError signals the API explicitly rejected a call for rate
// limiting, so the caller should cool the credential and retry with another.
type RateLimitedError struct {
	StatusCode int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("forum API rate limited (status %d)", e.StatusCode)
}

// Client calls the forum's listing API, authenticating per-call with
// whatever credential the caller supplies (the collector rotates these
// through a credential.Pool).
type Client struct {
	http      *resty.Client
	userAgent string
}

func NewClient(baseURL, userAgent string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent", userAgent)

	return &Client{http: c, userAgent: userAgent}
}

// token exchanges a credential for a bearer token via the OAuth2 password
// grant (client id/secret as basic auth, username/password in the body),
// matching the forum API's "script app" auth flow.
func (c *Client) token(ctx context.Context, cred credential.Credential) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(cred.ClientID, cred.ClientSecret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(fmt.Sprintf("grant_type=password&username=%s&password=%s", cred.Username, cred.Password)).
		SetResult(&tokenResponse{}).
		Post("/api/v1/access_token")
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	if resp.StatusCode() == 429 {
		return "", &RateLimitedError{StatusCode: resp.StatusCode()}
	}
	if resp.IsError() {
		return "", fmt.Errorf("access token request failed: HTTP %d", resp.StatusCode())
	}

	tok, ok := resp.Result().(*tokenResponse)
	if !ok || tok.AccessToken == "" {
		return "", fmt.Errorf("access token response missing access_token")
	}
	return tok.AccessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type listingEnvelope struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
		After string `json:"after"`
	} `json:"data"`
}

// List fetches one page for the given strategy, authenticating with cred.
func (c *Client) List(ctx context.Context, cred credential.Credential, s sampling.Strategy) (Listing, error) {
	token, err := c.token(ctx, cred)
	if err != nil {
		return Listing{}, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&listingEnvelope{}).
		SetQueryParam("limit", fmt.Sprintf("%d", s.Limit))

	if s.TimeFilter != "" {
		req.SetQueryParam("t", string(s.TimeFilter))
	}
	if s.Offset > 0 {
		req.SetQueryParam("count", fmt.Sprintf("%d", s.Offset))
	}
	if s.After != 0 {
		req.SetQueryParam("after", fmt.Sprintf("%d", s.After))
	}
	if s.Before != 0 {
		req.SetQueryParam("before", fmt.Sprintf("%d", s.Before))
	}

	resp, err := req.Get(fmt.Sprintf("/r/%s/%s", s.SubSource, s.Sort))
	if err != nil {
		return Listing{}, fmt.Errorf("listing %s/%s: %w", s.SubSource, s.Sort, err)
	}
	if resp.StatusCode() == 429 {
		return Listing{}, &RateLimitedError{StatusCode: resp.StatusCode()}
	}
	if resp.IsError() {
		return Listing{}, fmt.Errorf("listing %s/%s: HTTP %d", s.SubSource, s.Sort, resp.StatusCode())
	}

	env, ok := resp.Result().(*listingEnvelope)
	if !ok {
		return Listing{}, fmt.Errorf("listing %s/%s: unexpected response shape", s.SubSource, s.Sort)
	}

	posts := make([]Post, 0, len(env.Data.Children))
	for _, child := range env.Data.Children {
		posts = append(posts, child.Data)
	}

	return Listing{Posts: posts, AfterName: env.Data.After}, nil
}

// ListAfter pages the "new" listing for subSource starting after cursor
// (empty for the first page), used by the continuous streaming mode.
func (c *Client) ListAfter(ctx context.Context, cred credential.Credential, subSource, after string, limit int) (Listing, error) {
	s := sampling.Strategy{SubSource: subSource, Sort: sampling.SortNew, Limit: limit}
	if after == "" {
		return c.List(ctx, cred, s)
	}

	token, err := c.token(ctx, cred)
	if err != nil {
		return Listing{}, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&listingEnvelope{}).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetQueryParam("after", after).
		Get(fmt.Sprintf("/r/%s/new", subSource))
	if err != nil {
		return Listing{}, fmt.Errorf("listing %s/new after %q: %w", subSource, after, err)
	}
	if resp.StatusCode() == 429 {
		return Listing{}, &RateLimitedError{StatusCode: resp.StatusCode()}
	}
	if resp.IsError() {
		return Listing{}, fmt.Errorf("listing %s/new after %q: HTTP %d", subSource, after, resp.StatusCode())
	}

	env, ok := resp.Result().(*listingEnvelope)
	if !ok {
		return Listing{}, fmt.Errorf("listing %s/new: unexpected response shape", subSource)
	}

	posts := make([]Post, 0, len(env.Data.Children))
	for _, child := range env.Data.Children {
		posts = append(posts, child.Data)
	}

	return Listing{Posts: posts, AfterName: env.Data.After}, nil
}

// AuthorName flattens the API's author field, which may be a bare string or
// an {"name": "..."} object depending on endpoint.
func AuthorName(author any) string {
	switch v := author.(type) {
	case string:
		return v
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}
