package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Analysis AnalysisConfig `json:"analysis"`
	Security SecurityConfig `json:"security"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// AnalysisConfig tunes the frame-to-metrics pipeline. The thresholds that
// select insight wording are fixed constants in the analysis package; only
// structural knobs are configurable here.
type AnalysisConfig struct {
	// HistoryCapacity bounds the rolling history buffer. Producers and
	// consumers share this value so smoothing windows stay a fixed size.
	HistoryCapacity int `json:"history_capacity"`
	// DefaultDurationSeconds is used when a session starts without an
	// explicit duration.
	DefaultDurationSeconds int `json:"default_duration_seconds"`
	// SmoothingWindow is the number of frames (current plus prior) used by
	// the motion-quality calculation.
	SmoothingWindow int `json:"smoothing_window"`
	// VisibilityThreshold filters landmarks out of the visible set and the
	// point-cloud statistics.
	VisibilityThreshold float64 `json:"visibility_threshold"`
	// InsightsMinSamples is the minimum history length before insights are
	// generated.
	InsightsMinSamples int `json:"insights_min_samples"`
	// CompletionPollInterval is how often a running session re-checks its
	// duration, independent of frame arrival.
	CompletionPollInterval time.Duration `json:"completion_poll_interval"`
	// SessionIdleTimeout is how long a stopped or silent session is kept
	// before the manager janitor removes it.
	SessionIdleTimeout time.Duration `json:"session_idle_timeout"`
}

type SecurityConfig struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	RateLimitRPS   int           `json:"rate_limit_rps"`
	RateLimitBurst int           `json:"rate_limit_burst"`
	MaxRequestSize int64         `json:"max_request_size"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

type StorageConfig struct {
	DatabasePath string        `json:"database_path"`
	CacheSize    int           `json:"cache_size"`
	CacheTTL     time.Duration `json:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func LoadConfig() *Config {
	// A local .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Analysis: AnalysisConfig{
			HistoryCapacity:        getEnvAsInt("ANALYSIS_HISTORY_CAPACITY", 300),
			DefaultDurationSeconds: getEnvAsInt("ANALYSIS_DEFAULT_DURATION", 60),
			SmoothingWindow:        getEnvAsInt("ANALYSIS_SMOOTHING_WINDOW", 5),
			VisibilityThreshold:    getEnvAsFloat("ANALYSIS_VISIBILITY_THRESHOLD", 0.5),
			InsightsMinSamples:     getEnvAsInt("ANALYSIS_INSIGHTS_MIN_SAMPLES", 10),
			CompletionPollInterval: getEnvAsDuration("ANALYSIS_COMPLETION_POLL", 500*time.Millisecond),
			SessionIdleTimeout:     getEnvAsDuration("ANALYSIS_SESSION_IDLE_TIMEOUT", 10*time.Minute),
		},
		Security: SecurityConfig{
			AllowedOrigins: getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 200),
			MaxRequestSize: getEnvAsInt64("MAX_REQUEST_SIZE", 2*1024*1024), // 2MB; frames are landmark JSON, not images
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("DATABASE_PATH", "pose-analyzer.db"),
			CacheSize:    getEnvAsInt("REPORT_CACHE_SIZE", 256),
			CacheTTL:     getEnvAsDuration("REPORT_CACHE_TTL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func (c *Config) ValidateConfig(logger *zap.Logger) error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if c.Analysis.SmoothingWindow < 2 {
		errors = append(errors, "smoothing window must be at least 2 frames")
	}

	if c.Analysis.HistoryCapacity < c.Analysis.SmoothingWindow {
		errors = append(errors, "history capacity must be at least the smoothing window")
	}

	if c.Analysis.VisibilityThreshold < 0 || c.Analysis.VisibilityThreshold > 1 {
		errors = append(errors, "visibility threshold must be within [0,1]")
	}

	if c.Analysis.DefaultDurationSeconds <= 0 {
		errors = append(errors, "default session duration must be positive")
	}

	if c.Analysis.CompletionPollInterval <= 0 {
		errors = append(errors, "completion poll interval must be positive")
	}

	if c.Security.MaxRequestSize <= 0 {
		errors = append(errors, "max request size must be positive")
	}

	if c.Storage.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}

	if c.Analysis.HistoryCapacity > 1000 {
		logger.Warn("History capacity above 1000 frames; report payloads will be large",
			zap.Int("history_capacity", c.Analysis.HistoryCapacity))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
