package config

import "time"

// Config is the top-level evodex configuration, corresponding to .evodex.yml.
type Config struct {
	GatewayURL string         `yaml:"gateway_url" koanf:"gateway_url" validate:"required,url"`
	LogLevel   string         `yaml:"log_level" koanf:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Explorer   ExplorerConfig `yaml:"explorer" koanf:"explorer"`
	HTTP       HTTPConfig     `yaml:"http" koanf:"http"`
	Server     ServerConfig   `yaml:"server" koanf:"server"`
}

// ExplorerConfig controls tree building and search.
type ExplorerConfig struct {
	MaxDepth       int    `yaml:"max_depth" koanf:"max_depth" validate:"min=1,max=8"`
	CollapsedDepth int    `yaml:"collapsed_depth" koanf:"collapsed_depth" validate:"min=1"`
	LargeFamilyTag string `yaml:"large_family_tag" koanf:"large_family_tag" validate:"required"`
	SearchLimit    int    `yaml:"search_limit" koanf:"search_limit" validate:"min=1,max=100"`
	MinQueryLength int    `yaml:"min_query_length" koanf:"min_query_length" validate:"min=0"`
	DebounceMS     int    `yaml:"debounce_ms" koanf:"debounce_ms" validate:"min=0"`
	Concurrency    int    `yaml:"concurrency" koanf:"concurrency" validate:"min=1,max=64"`
}

// Debounce returns the search debounce as a duration.
func (e ExplorerConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

// HTTPConfig holds gateway client settings.
type HTTPConfig struct {
	TimeoutMS    int           `yaml:"timeout_ms" koanf:"timeout_ms" validate:"min=1"`
	RateLimitRPM int           `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm" validate:"min=0"`
	Breaker      BreakerConfig `yaml:"breaker" koanf:"breaker"`
}

// Timeout returns the per-request timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests" koanf:"max_requests" validate:"min=1"`
	IntervalSec  int     `yaml:"interval_sec" koanf:"interval_sec" validate:"min=0"`
	TimeoutSec   int     `yaml:"timeout_sec" koanf:"timeout_sec" validate:"min=1"`
	FailureRatio float64 `yaml:"failure_ratio" koanf:"failure_ratio" validate:"gt=0,lte=1"`
	MinRequests  uint32  `yaml:"min_requests" koanf:"min_requests" validate:"min=1"`
}

// ServerConfig holds settings for the local reference gateway.
type ServerConfig struct {
	Port            int    `yaml:"port" koanf:"port" validate:"min=1,max=65535"`
	DBPath          string `yaml:"db_path" koanf:"db_path" validate:"required"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
