package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/providers/common"
)

// ErrRemoteQuery covers the whole call: transport error, non-success
// status, or an unparsable body. There is no retry.
var ErrRemoteQuery = errors.New("suggestion query failed")

const (
	defaultEndpoint  = "https://suggestqueries.google.com/complete/search"
	defaultUserAgent = "vidstream-metaservice/1.0"

	maxBodyBytes = 4 * 1024 * 1024
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
	}
}

func (p *Provider) Name() string {
	return "suggest"
}

// Suggest issues a single autocomplete GET for prefix. The prefix is
// opaque text and goes through url.Values encoding.
func (p *Provider) Suggest(ctx context.Context, prefix string) ([]domain.VideoRecord, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %v", ErrRemoteQuery, err)
	}
	query := uri.Query()
	query.Set("client", "firefox")
	query.Set("ds", "yt")
	query.Set("q", prefix)
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRemoteQuery, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}

	records, err := common.ParseMirrorRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}
	return records, nil
}
