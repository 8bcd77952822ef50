// Package sugoi looks up playable episode links on a Sugoi API instance,
// used for episodes whose stored video URL is the automatic placeholder.
package sugoi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/yourflock/nekostream/internal/cache"
	"github.com/yourflock/nekostream/internal/metrics"
)

// ErrNoSource means the API answered but no provider had the episode.
var ErrNoSource = errors.New("sugoi: no source for episode")

// episodeResponse is the body of GET /episode/{slug}/{season}/{n}.
// data is kept raw because failed lookups may return a non-array.
type episodeResponse struct {
	Error bool            `json:"error"`
	Data  json.RawMessage `json:"data"`
}

type provider struct {
	Name     string `json:"name"`
	Episodes []struct {
		Episode string `json:"episode"`
	} `json:"episodes"`
}

// fetchTimeout bounds one upstream lookup.
const fetchTimeout = 10 * time.Second

// Client resolves episode links. Identical concurrent lookups share one
// upstream request; successful answers are cached for ttl.
type Client struct {
	client  *http.Client
	baseURL string
	cache   cache.Backend
	ttl     time.Duration
	group   singleflight.Group
}

// NewClient returns a client for baseURL. c may be nil to disable caching.
func NewClient(baseURL string, c cache.Backend, ttl time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   c,
		ttl:     ttl,
	}
}

// Resolve returns the first available link for the episode.
func (c *Client) Resolve(ctx context.Context, slug string, season, episode int) (string, error) {
	if slug == "" {
		return "", ErrNoSource
	}
	key := fmt.Sprintf("sugoi:%s:%d:%d", slug, season, episode)

	if c.cache != nil {
		var link string
		if cache.GetJSON(ctx, c.cache, key, &link) && link != "" {
			metrics.ResolverRequests.WithLabelValues("cached").Inc()
			return link, nil
		}
	}

	// The shared fetch outlives any single caller: one viewer leaving must
	// not fail the others waiting on the same key.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return c.fetch(fctx, slug, season, episode)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		metrics.ResolverRequests.WithLabelValues("canceled").Inc()
		return "", ctx.Err()
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	switch {
	case errors.Is(err, ErrNoSource):
		metrics.ResolverRequests.WithLabelValues("not_found").Inc()
		return "", err
	case err != nil:
		metrics.ResolverRequests.WithLabelValues("error").Inc()
		return "", err
	}

	link := v.(string)
	metrics.ResolverRequests.WithLabelValues("ok").Inc()
	if c.cache != nil {
		cache.SetJSON(ctx, c.cache, key, link, c.ttl)
	}
	return link, nil
}

func (c *Client) fetch(ctx context.Context, slug string, season, episode int) (string, error) {
	u := fmt.Sprintf("%s/episode/%s/%d/%d", c.baseURL, url.PathEscape(slug), season, episode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "build sugoi request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sugoi request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("sugoi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", errors.Wrap(err, "read sugoi response")
	}

	var parsed episodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "decode sugoi response")
	}
	if parsed.Error || !bytes.HasPrefix(bytes.TrimSpace(parsed.Data), []byte("[")) {
		return "", ErrNoSource
	}

	var providers []provider
	if err := json.Unmarshal(parsed.Data, &providers); err != nil {
		return "", errors.Wrap(err, "decode sugoi providers")
	}
	for _, p := range providers {
		if len(p.Episodes) == 0 {
			continue
		}
		if link := p.Episodes[0].Episode; link != "" {
			return link, nil
		}
		break
	}
	return "", ErrNoSource
}
