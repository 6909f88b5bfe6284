package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/providers/suggest"
	"vidstream/metaservice/internal/providers/ytdlp"
	"vidstream/metaservice/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, query string, page int) (domain.SearchResponse, error)
	Suggest(ctx context.Context, prefix string) (domain.SuggestResponse, error)
	TrendingMusic(ctx context.Context, region string) (domain.TrendingResponse, error)
	MirrorPool(ctx context.Context) domain.MirrorPool
	ProviderDiagnostics() []domain.ProviderDiagnostics
}

const maxQueryLength = 500

type Server struct {
	search    SearchService
	logger    *slog.Logger
	rateRPS   float64
	rateBurst int
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		logger:    slog.Default(),
		rateRPS:   50,
		rateBurst: 100,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/suggest", s.handleSuggest)
	mux.HandleFunc("/trending", s.handleTrending)
	mux.HandleFunc("/mirrors", s.handleMirrors)
	mux.HandleFunc("/providers/health", s.handleProvidersHealth)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "video-meta-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	response, err := s.search.Search(r.Context(), query, page)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		s.writeSearchError(w, err)
		return
	}

	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.Int("page", page),
		slog.Int("items", len(response.Items)),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/suggest" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(prefix) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}

	response, err := s.search.Suggest(r.Context(), prefix)
	if err != nil {
		s.logger.Warn("suggest request failed",
			slog.String("prefix", truncate(prefix, 60)),
			slog.String("error", err.Error()),
		)
		s.writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/trending" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	region := strings.TrimSpace(r.URL.Query().Get("region"))

	response, err := s.search.TrendingMusic(r.Context(), region)
	if err != nil {
		s.logger.Warn("trending request failed",
			slog.String("region", region),
			slog.String("error", err.Error()),
		)
		s.writeSearchError(w, err)
		return
	}

	s.logger.Info("trending completed",
		slog.String("region", response.Region),
		slog.String("mirror", response.Mirror),
		slog.Int("attempts", response.Attempts),
		slog.Int("items", len(response.Items)),
	)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMirrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.search.MirrorPool(r.Context()))
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.search.ProviderDiagnostics(),
	})
}

// writeSearchError maps the error taxonomy onto HTTP statuses: caller
// mistakes are 400, upstream failures 502, an exhausted mirror pool 503.
func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrMissingQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrInvalidRegion):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ytdlp.ErrExternalTool):
		writeError(w, http.StatusBadGateway, "external_tool_failed", "bulk search backend failed")
	case errors.Is(err, suggest.ErrRemoteQuery):
		writeError(w, http.StatusBadGateway, "remote_query_failed", "suggestion backend failed")
	case errors.Is(err, search.ErrNoMirrorAvailable):
		writeError(w, http.StatusServiceUnavailable, "no_mirror_available", "no mirror instance answered")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "request failed")
	}
}

func parsePositiveInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, errors.New("invalid " + name)
	}
	return value, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
