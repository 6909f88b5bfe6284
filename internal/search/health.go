package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/metrics"
)

// providerHealth is diagnostics-only bookkeeping. Failures never block
// a provider: every call is terminal on its own and the only deliberate
// retry in the system is the trending mirror scan.
type providerHealth struct {
	consecutiveFailures int
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastTimeout         bool
	totalRequests       int64
	totalFailures       int64
	timeoutCount        int64
}

func (s *Service) recordProviderResult(providerName string, err error, latency time.Duration, now time.Time) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		return
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.health[name]
	if state == nil {
		state = &providerHealth{}
		s.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.ProviderRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.ProviderRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(name, status).Inc()
	metrics.ProviderAvailable.WithLabelValues(name).Set(0)
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

func (s *Service) ProviderDiagnostics() []domain.ProviderDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.ProviderDiagnostics, 0, len(s.health))
	for name, state := range s.health {
		item := domain.ProviderDiagnostics{
			Name:                name,
			ConsecutiveFailures: state.consecutiveFailures,
			LastError:           state.lastError,
			LastLatencyMS:       state.lastLatency.Milliseconds(),
			LastTimeout:         state.lastTimeout,
			TotalRequests:       state.totalRequests,
			TotalFailures:       state.totalFailures,
			TimeoutCount:        state.timeoutCount,
		}
		if !state.lastSuccessAt.IsZero() {
			lastSuccessAt := state.lastSuccessAt
			item.LastSuccessAt = &lastSuccessAt
		}
		if !state.lastFailureAt.IsZero() {
			lastFailureAt := state.lastFailureAt
			item.LastFailureAt = &lastFailureAt
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}
