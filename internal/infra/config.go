package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	LogFile            string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	UpstreamTimeout    time.Duration
	RateLimitPerMin    int
	TrustProxyHeaders  bool
	CORSAllowedOrigins []string
	MaxRequestBytes    int64
	Concurrency        int
	MaxAttempts        int
	RetryBaseDelay     time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LogFile:            os.Getenv("LOG_FILE"),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:    time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 90)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MaxRequestBytes:    int64(getEnvInt("MAX_REQUEST_BYTES", 32<<20)),
		Concurrency:        getEnvInt("GENERATION_CONCURRENCY", 2),
		MaxAttempts:        getEnvInt("GENERATION_MAX_ATTEMPTS", 3),
		RetryBaseDelay:     time.Millisecond * time.Duration(getEnvInt("GENERATION_RETRY_BASE_MS", 1000)),
	}

	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("GENERATION_CONCURRENCY must be at least 1")
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1")
	}

	if cfg.RetryBaseDelay < 0 {
		return nil, fmt.Errorf("GENERATION_RETRY_BASE_MS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
