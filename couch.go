package couch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
)

// DefaultURL is used when no server URL is given.
const DefaultURL = "http://localhost:5984/"

// Client talks to one CouchDB instance.
type Client struct {
	url    string
	client Doer
	logger hclog.Logger
	uuids  *uuidBuffer
}

// Config holds optional settings for a Client.
type Config struct {
	URL          string        // Server URL, path is ignored (default: DefaultURL)
	Timeout      time.Duration // HTTP timeout, ignored when HTTPClient is set (default: none)
	HTTPClient   Doer          // Transport (default: *http.Client with Timeout)
	Logger       hclog.Logger  // Logger (optional)
	UUIDPrefetch *int          // Extra uuids per refill (default: DefaultUUIDPrefetch)
}

// Object is a parsed JSON object returned by server and database calls.
type Object map[string]interface{}

// New returns a client for the server at rawURL, or DefaultURL if rawURL is
// empty. Only the scheme, host and port of rawURL are used.
func New(rawURL string) (*Client, error) {
	return NewWithConfig(Config{URL: rawURL})
}

// NewWithConfig returns a client configured by cfg.
func NewWithConfig(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	u, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	prefetch := DefaultUUIDPrefetch
	if cfg.UUIDPrefetch != nil {
		prefetch = *cfg.UUIDPrefetch
	}
	if err := invalid("uuid prefetch", prefetch, validation.Min(0)); err != nil {
		return nil, err
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	c := &Client{
		url:    u,
		client: cfg.HTTPClient,
		logger: cfg.Logger.Named("couch"),
	}
	c.uuids = newUUIDBuffer(prefetch, c.fetchUUIDs)
	return c, nil
}

// normalizeURL resolves rawURL against the root path, dropping any path,
// query and fragment.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("couch: invalid server url: %w", err)
	}
	return u.ResolveReference(&url.URL{Path: "/"}).String(), nil
}

// URL returns the normalized server URL. It always ends in a slash.
func (c *Client) URL() string {
	return c.url
}

// Root returns the welcome object of the server. The status code is not
// checked; callers inspect the returned object themselves.
func (c *Client) Root(ctx context.Context) (Object, error) {
	resp, err := c.do(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return nil, err
	}
	var root Object
	if err := resp.decode(&root); err != nil {
		return nil, err
	}
	return root, nil
}

// CreateDatabase creates a new database.
func (c *Client) CreateDatabase(ctx context.Context, name string) (Object, error) {
	return c.databaseCall(ctx, http.MethodPut, name, http.StatusCreated)
}

// DeleteDatabase deletes a database and all of its documents.
func (c *Client) DeleteDatabase(ctx context.Context, name string) (Object, error) {
	return c.databaseCall(ctx, http.MethodDelete, name, http.StatusOK)
}

func (c *Client) databaseCall(ctx context.Context, method, name string, status int) (Object, error) {
	if err := requireName("database name", name); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, method, pathOf(name, ""), nil, nil)
	if err != nil {
		return nil, err
	}
	var result Object
	if err := resp.expect(status, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DatabaseExists reports whether a database exists. Only a 404 answer
// counts as missing; any other status, errors included, counts as existing.
func (c *Client) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if err := requireName("database name", name); err != nil {
		return false, err
	}
	resp, err := c.do(ctx, http.MethodGet, pathOf(name, ""), nil, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode != http.StatusNotFound, nil
}
