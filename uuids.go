package couch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultUUIDPrefetch is how many identifiers are fetched on top of what a
// request needs whenever the buffer runs dry.
const DefaultUUIDPrefetch = 100

// uuidBuffer holds identifiers fetched from the server but not handed out
// yet. take is one critical section, network call included, so two callers
// can never both decide to replenish or splice overlapping ranges.
type uuidBuffer struct {
	sem      chan struct{}
	ids      []string
	prefetch int
	fetch    func(ctx context.Context, count int) ([]string, error)
}

func newUUIDBuffer(prefetch int, fetch func(context.Context, int) ([]string, error)) *uuidBuffer {
	return &uuidBuffer{
		sem:      make(chan struct{}, 1),
		prefetch: prefetch,
		fetch:    fetch,
	}
}

func (b *uuidBuffer) take(ctx context.Context, n int) ([]string, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-b.sem }()

	if len(b.ids) < n {
		fetched, err := b.fetch(ctx, n-len(b.ids)+b.prefetch)
		if err != nil {
			return nil, err
		}
		b.ids = union(b.ids, fetched)
		if len(b.ids) < n {
			return nil, fmt.Errorf("%w: need %d, have %d", ErrShortUUIDs, n, len(b.ids))
		}
	}

	out := make([]string, n)
	copy(out, b.ids)
	b.ids = b.ids[n:]
	return out, nil
}

// union appends the elements of add that are not yet in ids, keeping order.
func union(ids, add []string) []string {
	seen := make(map[string]struct{}, len(ids)+len(add))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// UUIDs returns n unique identifiers generated by the server. They are taken
// from the client's buffer, which is refilled from /_uuids with some extra
// identifiers whenever it holds fewer than n.
func (c *Client) UUIDs(ctx context.Context, n int) ([]string, error) {
	if err := invalid("uuid count", n, validation.Required, validation.Min(1)); err != nil {
		return nil, err
	}
	return c.uuids.take(ctx, n)
}

// UUID returns a single server generated identifier.
func (c *Client) UUID(ctx context.Context) (string, error) {
	ids, err := c.UUIDs(ctx, 1)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (c *Client) fetchUUIDs(ctx context.Context, count int) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "_uuids", url.Values{"count": {strconv.Itoa(count)}}, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		UUIDs []string `json:"uuids"`
	}
	if err := resp.expect(http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("couch: could not generate uuids: %w", err)
	}
	return result.UUIDs, nil
}
