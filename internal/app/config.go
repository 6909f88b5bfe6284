package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	RequestTimeout    time.Duration
	LogLevel          string
	LogFormat         string
	UserAgent         string
	YTDLPBinary       string
	YTDLPMaxParallel  int
	SuggestEndpoint   string
	DirectoryEndpoint string
	StaticMirrors     []string
	TrendingRegion    string
	RedisURL          string
	MirrorPoolTTL     time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8085"),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:         getEnv("USER_AGENT", "vidstream-metaservice/1.0"),
		YTDLPBinary:       getEnv("YTDLP_PATH", "yt-dlp"),
		YTDLPMaxParallel:  getEnvInt("YTDLP_MAX_CONCURRENT", 2),
		SuggestEndpoint:   getEnv("SUGGEST_ENDPOINT", "https://suggestqueries.google.com/complete/search"),
		DirectoryEndpoint: getEnv("MIRROR_DIRECTORY_URL", "https://api.invidious.io/instances.json"),
		StaticMirrors:     splitCSV(os.Getenv("STATIC_MIRRORS")),
		TrendingRegion:    strings.ToUpper(getEnv("TRENDING_REGION", "US")),
		RedisURL:          getEnv("REDIS_URL", ""),
		MirrorPoolTTL:     time.Duration(getEnvInt("MIRROR_POOL_TTL_MINUTES", 10)) * time.Minute,
		RateLimitRPS:      float64(getEnvInt("RATE_LIMIT_RPS", 50)),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			values = append(values, value)
		}
	}
	return values
}
