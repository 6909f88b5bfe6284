package invidious

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/providers/common"
)

const (
	defaultUserAgent = "vidstream-metaservice/1.0"

	maxBodyBytes = 4 * 1024 * 1024
)

// Client talks to any compliant mirror instance. It carries no mirror
// of its own; the base URL arrives per call from the resolver.
type Client struct {
	client    *http.Client
	userAgent string
}

type Config struct {
	UserAgent string
	Client    *http.Client
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{client: client, userAgent: userAgent}
}

// Trending probes one mirror for trending music in region. Transport
// errors, non-success statuses and parse failures are errors so the
// resolver moves on; an empty parsed array is a valid success.
func (c *Client) Trending(ctx context.Context, mirror, region string) ([]domain.VideoRecord, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(mirror), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid mirror base %q", mirror)
	}
	uri := *base
	uri.Path = strings.TrimRight(uri.Path, "/") + "/api/v1/trending"
	query := uri.Query()
	query.Set("type", "music")
	query.Set("region", region)
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mirror %s: HTTP %d", base.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	records, err := common.ParseMirrorRecords(body)
	if err != nil {
		return nil, fmt.Errorf("mirror %s: %w", base.Host, err)
	}
	return records, nil
}
