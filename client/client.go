package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/kagari-social/kagari"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // remote documents have no business being larger
)

// StatusError is a non-2xx response from a remote server. Client errors are
// treated as permanent (the object is gone or was never there); everything
// else is a transient remote failure.
type StatusError struct {
	StatusCode int
	URI        string
}

func (e *StatusError) Error() string {
	return "remote fetch of " + e.URI + " failed with status " + http.StatusText(e.StatusCode)
}

// IsClientError reports whether the failure is a 4xx.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// AsStatusError unwraps err into a StatusError if it is one.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client fetches ActivityPub objects from remote servers. Responses are
// cached for a short window; trust-sensitive callers use FetchFresh.
type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
}

func New(userAgent string) *Client {
	httpClient := &http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: userAgent,
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Fetch resolves a URI into result, serving from the object cache when the
// document was fetched recently.
func (c *Client) Fetch(ctx context.Context, uri string, result any) error {
	if raw, found := c.cache.Get(uri); found {
		return json.Unmarshal(raw.([]byte), result)
	}

	raw, err := c.fetchRaw(ctx, uri)
	if err != nil {
		return err
	}
	c.cache.Set(uri, raw, cache.DefaultExpiration)
	return json.Unmarshal(raw, result)
}

// FetchFresh resolves a URI bypassing and refreshing the object cache. Used
// for trust-sensitive reads such as actor moves and profile updates.
func (c *Client) FetchFresh(ctx context.Context, uri string, result any) error {
	raw, err := c.fetchRaw(ctx, uri)
	if err != nil {
		return err
	}
	c.cache.Set(uri, raw, cache.DefaultExpiration)
	return json.Unmarshal(raw, result)
}

// FetchActor resolves a URI into an actor document.
func (c *Client) FetchActor(ctx context.Context, uri string) (*kagari.Actor, error) {
	var actor kagari.Actor
	if err := c.Fetch(ctx, uri, &actor); err != nil {
		return nil, err
	}
	return validActor(&actor, uri)
}

// FetchActorFresh is FetchActor without cache participation.
func (c *Client) FetchActorFresh(ctx context.Context, uri string) (*kagari.Actor, error) {
	var actor kagari.Actor
	if err := c.FetchFresh(ctx, uri, &actor); err != nil {
		return nil, err
	}
	return validActor(&actor, uri)
}

func validActor(actor *kagari.Actor, uri string) (*kagari.Actor, error) {
	if actor.ID == "" || actor.Inbox == "" {
		return nil, errors.Errorf("actor %s is missing required fields", uri)
	}
	return actor, nil
}

func (c *Client) fetchRaw(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/activity+json, application/ld+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URI: uri}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return raw, nil
}
