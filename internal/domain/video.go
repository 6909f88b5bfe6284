package domain

import "time"

// VideoRecord is the canonical video metadata value produced by the
// record parsers. DurationSeconds is 0 when the upstream did not report
// a duration.
type VideoRecord struct {
	Title           string `json:"title"`
	DurationSeconds uint64 `json:"durationSeconds"`
	VideoID         string `json:"videoId"`
}

// Session binds a query string to the backend that served its first
// page. Sessions are immutable values; a session with an empty Query
// cannot be paginated.
type Session struct {
	Source string `json:"source"`
	Query  string `json:"query"`
}

// MirrorInstance is one directory entry that survived health filtering.
// HealthRatio is the 30-day uptime percentage reported by the mirror's
// own monitor, always > 95.0 for instances surfaced to consumers.
type MirrorInstance struct {
	URI         string  `json:"uri"`
	HealthRatio float64 `json:"healthRatio"`
}

const (
	MirrorPoolSourceDirectory = "directory"
	MirrorPoolSourceStatic    = "static"
)

// MirrorPool is the candidate list the trending resolver scans, plus
// where it came from.
type MirrorPool struct {
	Source  string   `json:"source"`
	Mirrors []string `json:"mirrors"`
}

type SearchResponse struct {
	Query     string        `json:"query"`
	Page      int           `json:"page"`
	PageSize  int           `json:"pageSize"`
	Source    string        `json:"source"`
	Items     []VideoRecord `json:"items"`
	ElapsedMS int64         `json:"elapsedMs"`
}

type SuggestResponse struct {
	Prefix string        `json:"prefix"`
	Items  []VideoRecord `json:"items"`
}

type TrendingResponse struct {
	Region    string        `json:"region"`
	Mirror    string        `json:"mirror"`
	PoolSize  int           `json:"poolSize"`
	Attempts  int           `json:"attempts"`
	Items     []VideoRecord `json:"items"`
	ElapsedMS int64         `json:"elapsedMs"`
}

type ProviderDiagnostics struct {
	Name                string     `json:"name"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
}
