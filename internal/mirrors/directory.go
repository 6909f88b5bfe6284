package mirrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/metrics"
)

// ErrNoInstances means the directory produced no healthy instance,
// whether because of a transport failure, an unparsable payload, or
// every entry failing the health filter. The directory never
// substitutes the static list itself; that is the caller's decision.
var ErrNoInstances = errors.New("no healthy mirror instances")

const (
	defaultDirectoryURL = "https://api.invidious.io/instances.json"
	defaultUserAgent    = "vidstream-metaservice/1.0"
	defaultPoolTTL      = 10 * time.Minute

	// Instances whose 30-day uptime ratio is at or below this never
	// reach a consumer.
	minHealthRatio = 95.0

	maxBodyBytes = 8 * 1024 * 1024

	redisPoolKey = "vmeta:mirrors:pool"
)

// defaultStaticMirrors is the compile-time fallback used when the
// dynamic directory cannot be fetched at all.
var defaultStaticMirrors = []string{
	"https://inv.nadeko.net",
	"https://invidious.nerdvpn.de",
	"https://yewtu.be",
	"https://y.com.sb",
	"https://yt.artemislena.eu",
}

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
	// Static overrides the compiled-in fallback list.
	Static []string
	// Redis, when set, caches the filtered pool between calls so a
	// flaky directory does not get hammered. Query results are never
	// cached here, only the instance pool.
	Redis   *redis.Client
	PoolTTL time.Duration
}

type Directory struct {
	client    *http.Client
	endpoint  string
	userAgent string
	static    []string
	redis     *redis.Client
	poolTTL   time.Duration
	group     singleflight.Group
}

func NewDirectory(cfg Config) *Directory {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultDirectoryURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	static := cfg.Static
	if len(static) == 0 {
		static = defaultStaticMirrors
	}
	poolTTL := cfg.PoolTTL
	if poolTTL <= 0 {
		poolTTL = defaultPoolTTL
	}
	return &Directory{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		static:    append([]string(nil), static...),
		redis:     cfg.Redis,
		poolTTL:   poolTTL,
	}
}

// Static returns a copy of the fallback mirror list.
func (d *Directory) Static() []string {
	return append([]string(nil), d.static...)
}

// ListHealthy returns the base URLs of every directory entry that is
// API-capable and above the health threshold. Concurrent callers share
// one in-flight fetch. The result is non-empty or an error.
func (d *Directory) ListHealthy(ctx context.Context) ([]string, error) {
	if pool, ok := d.cachedPool(ctx); ok {
		return pool, nil
	}

	value, err, _ := d.group.Do("pool", func() (any, error) {
		return d.fetchHealthy(ctx)
	})
	if err != nil {
		metrics.DirectoryRefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	pool := value.([]string)
	metrics.DirectoryRefreshTotal.WithLabelValues("ok").Inc()
	metrics.MirrorPoolSize.Set(float64(len(pool)))
	d.storePool(ctx, pool)
	return pool, nil
}

func (d *Directory) fetchHealthy(ctx context.Context) ([]string, error) {
	uri, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid directory endpoint: %v", ErrNoInstances, err)
	}
	query := uri.Query()
	query.Set("sort_by", "type,users")
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInstances, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInstances, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: directory HTTP %d", ErrNoInstances, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInstances, err)
	}

	instances, err := parseInstances(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInstances, err)
	}
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	pool := make([]string, 0, len(instances))
	for _, instance := range instances {
		pool = append(pool, instance.URI)
	}
	return pool, nil
}

// parseInstances decodes the directory payload: an array of 2-element
// [name, details] entries. An entry survives only when details.api is
// boolean true and monitor["30dRatio"].ratio parses as a float above
// the threshold; anything missing or malformed is skipped silently.
func parseInstances(payload []byte) ([]domain.MirrorInstance, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decode directory payload: %w", err)
	}

	instances := make([]domain.MirrorInstance, 0, len(entries))
	for _, entry := range entries {
		var tuple []json.RawMessage
		if err := json.Unmarshal(entry, &tuple); err != nil || len(tuple) < 2 {
			continue
		}
		var details struct {
			API     *bool   `json:"api"`
			URI     *string `json:"uri"`
			Monitor *struct {
				Ratio30d *struct {
					Ratio *string `json:"ratio"`
				} `json:"30dRatio"`
			} `json:"monitor"`
		}
		if err := json.Unmarshal(tuple[1], &details); err != nil {
			continue
		}
		if details.API == nil || !*details.API {
			continue
		}
		if details.URI == nil || strings.TrimSpace(*details.URI) == "" {
			continue
		}
		if details.Monitor == nil || details.Monitor.Ratio30d == nil || details.Monitor.Ratio30d.Ratio == nil {
			continue
		}
		ratio, err := strconv.ParseFloat(strings.TrimSpace(*details.Monitor.Ratio30d.Ratio), 64)
		if err != nil {
			continue
		}
		if ratio <= minHealthRatio {
			continue
		}
		instances = append(instances, domain.MirrorInstance{
			URI:         strings.TrimSpace(*details.URI),
			HealthRatio: ratio,
		})
	}
	return instances, nil
}

func (d *Directory) cachedPool(ctx context.Context) ([]string, bool) {
	if d.redis == nil {
		return nil, false
	}
	data, err := d.redis.Get(ctx, redisPoolKey).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []string
	if err := json.Unmarshal(data, &pool); err != nil || len(pool) == 0 {
		return nil, false
	}
	return pool, true
}

func (d *Directory) storePool(ctx context.Context, pool []string) {
	if d.redis == nil || len(pool) == 0 {
		return
	}
	data, err := json.Marshal(pool)
	if err != nil {
		return
	}
	_ = d.redis.Set(ctx, redisPoolKey, data, d.poolTTL).Err()
}
