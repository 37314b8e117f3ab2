package couch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// response is a fully buffered answer from CouchDB.
type response struct {
	StatusCode int
	Body       []byte
}

// decode unmarshals the response body into v.
func (r *response) decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("couch: failed to decode response (status %d): %w", r.StatusCode, err)
	}
	return nil
}

// expect decodes the body into v if the status matches, and turns any other
// status into a *StatusError.
func (r *response) expect(status int, v interface{}) error {
	if r.StatusCode != status {
		return newStatusError(r)
	}
	if v == nil {
		return nil
	}
	return r.decode(v)
}

// pathOf joins escaped segments to a path relative to the server root.
// A trailing slash is kept when the last segment is empty.
func pathOf(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// Generic CouchDB request. The path is relative to the normalized base URL.
// Any status is a successful round trip here; classification is up to the
// caller.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*response, error) {

	// Prepare json request body
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("couch: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	endpoint := c.url + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("couch: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("couch: %s /%s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("couch: failed to read response: %w", err)
	}

	c.logger.Debug("request", "method", method, "path", "/"+path, "status", resp.StatusCode)
	return &response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
