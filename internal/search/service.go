package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/metrics"
	"vidstream/metaservice/internal/resolver"
)

var (
	ErrMissingQuery      = errors.New("query is required")
	ErrInvalidPage       = errors.New("page must be >= 1")
	ErrInvalidRegion     = errors.New("invalid region code")
	ErrNoMirrorAvailable = errors.New("no mirror instance available")
)

// BulkSearchProvider is the subprocess-backed search collaborator. One
// call returns one finite batch of records; batches never span calls.
type BulkSearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, page int) ([]domain.VideoRecord, error)
}

type SuggestProvider interface {
	Name() string
	Suggest(ctx context.Context, prefix string) ([]domain.VideoRecord, error)
}

// MirrorLister supplies trending candidates: the dynamic healthy pool,
// or the static fallback when the directory cannot be fetched.
type MirrorLister interface {
	ListHealthy(ctx context.Context) ([]string, error)
	Static() []string
}

type TrendingClient interface {
	Trending(ctx context.Context, mirror, region string) ([]domain.VideoRecord, error)
}

const defaultRegion = "US"

type Service struct {
	bulk      BulkSearchProvider
	suggest   SuggestProvider
	directory MirrorLister
	mirrorAPI TrendingClient
	region    string
	pageSize  int

	healthMu sync.Mutex
	health   map[string]*providerHealth
}

type Option func(*Service)

// WithDefaultRegion sets the region used when a trending call does not
// supply one.
func WithDefaultRegion(region string) Option {
	return func(s *Service) {
		if value := strings.TrimSpace(region); value != "" {
			s.region = strings.ToUpper(value)
		}
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func NewService(bulk BulkSearchProvider, suggest SuggestProvider, directory MirrorLister, mirrorAPI TrendingClient, opts ...Option) *Service {
	svc := &Service{
		bulk:      bulk,
		suggest:   suggest,
		directory: directory,
		mirrorAPI: mirrorAPI,
		region:    defaultRegion,
		pageSize:  20,
		health:    make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search runs one paginated bulk search. Running past the end of the
// available results yields an empty page, not an error.
func (s *Service) Search(ctx context.Context, query string, page int) (domain.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResponse{}, ErrMissingQuery
	}
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return domain.SearchResponse{}, ErrInvalidPage
	}

	start := time.Now()
	records, err := s.bulk.Search(ctx, query, page)
	latency := time.Since(start)
	s.recordProviderResult(s.bulk.Name(), err, latency, time.Now())
	if err != nil {
		return domain.SearchResponse{}, err
	}

	return domain.SearchResponse{
		Query:     query,
		Page:      page,
		PageSize:  s.pageSize,
		Source:    s.bulk.Name(),
		Items:     records,
		ElapsedMS: latency.Milliseconds(),
	}, nil
}

// NewSession binds a query to the backend serving it and returns the
// first page alongside the session.
func (s *Service) NewSession(ctx context.Context, query string) (domain.Session, domain.SearchResponse, error) {
	response, err := s.Search(ctx, query, 1)
	if err != nil {
		return domain.Session{}, domain.SearchResponse{}, err
	}
	return domain.Session{Source: s.bulk.Name(), Query: response.Query}, response, nil
}

// SearchPage paginates an existing session. A session without a bound
// query cannot be paginated.
func (s *Service) SearchPage(ctx context.Context, session domain.Session, page int) (domain.SearchResponse, error) {
	if strings.TrimSpace(session.Query) == "" {
		return domain.SearchResponse{}, ErrMissingQuery
	}
	return s.Search(ctx, session.Query, page)
}

func (s *Service) Suggest(ctx context.Context, prefix string) (domain.SuggestResponse, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return domain.SuggestResponse{}, ErrMissingQuery
	}

	start := time.Now()
	records, err := s.suggest.Suggest(ctx, prefix)
	s.recordProviderResult(s.suggest.Name(), err, time.Since(start), time.Now())
	if err != nil {
		return domain.SuggestResponse{}, err
	}
	return domain.SuggestResponse{Prefix: prefix, Items: records}, nil
}

// TrendingMusic resolves trending music for region through the mirror
// pool: shuffle once, probe sequentially, first success wins. Exactly
// one mirror's answer is returned per call, never a merge.
func (s *Service) TrendingMusic(ctx context.Context, region string) (domain.TrendingResponse, error) {
	region, err := s.normalizeRegion(region)
	if err != nil {
		return domain.TrendingResponse{}, err
	}

	pool := s.mirrorPool(ctx)

	attempts := 0
	winner := ""
	probe := func(ctx context.Context, mirror string) ([]domain.VideoRecord, error) {
		attempts++
		records, probeErr := s.mirrorAPI.Trending(ctx, mirror, region)
		if probeErr != nil {
			metrics.MirrorProbesTotal.WithLabelValues("error").Inc()
			return nil, probeErr
		}
		metrics.MirrorProbesTotal.WithLabelValues("ok").Inc()
		winner = mirror
		return records, nil
	}

	start := time.Now()
	records, err := resolver.Resolve(ctx, pool.Mirrors, probe)
	if err != nil {
		if errors.Is(err, resolver.ErrExhausted) {
			metrics.MirrorScansTotal.WithLabelValues("exhausted", pool.Source).Inc()
			return domain.TrendingResponse{}, fmt.Errorf("%w: %v", ErrNoMirrorAvailable, err)
		}
		return domain.TrendingResponse{}, err
	}

	metrics.MirrorScansTotal.WithLabelValues("ok", pool.Source).Inc()
	return domain.TrendingResponse{
		Region:    region,
		Mirror:    winner,
		PoolSize:  len(pool.Mirrors),
		Attempts:  attempts,
		Items:     records,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}

// MirrorPool exposes the candidate list a trending call would use right
// now, for diagnostics.
func (s *Service) MirrorPool(ctx context.Context) domain.MirrorPool {
	return s.mirrorPool(ctx)
}

func (s *Service) mirrorPool(ctx context.Context) domain.MirrorPool {
	mirrors, err := s.directory.ListHealthy(ctx)
	if err != nil {
		return domain.MirrorPool{
			Source:  domain.MirrorPoolSourceStatic,
			Mirrors: s.directory.Static(),
		}
	}
	return domain.MirrorPool{
		Source:  domain.MirrorPoolSourceDirectory,
		Mirrors: mirrors,
	}
}

func (s *Service) normalizeRegion(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return s.region, nil
	}
	region, err := language.ParseRegion(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, raw)
	}
	return region.String(), nil
}
