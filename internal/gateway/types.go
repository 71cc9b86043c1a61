package gateway

import (
	"fmt"
	"time"
)

// EvolutionOption is one entry of an evolution list. Type carries the
// family tag (e.g. "digimon"); Name may be empty in malformed payloads.
type EvolutionOption struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ImageInfo is the image metadata for one species.
type ImageInfo struct {
	ImageURL string `json:"image_url"`
}

type evolutionResponse struct {
	Success bool              `json:"success"`
	Data    []EvolutionOption `json:"data"`
	Message string            `json:"message,omitempty"`
}

type searchResponse struct {
	Success bool     `json:"success"`
	Species []string `json:"species"`
	Message string   `json:"message,omitempty"`
}

type imageEntry struct {
	Species string `json:"species"`
	URL     string `json:"url"`
}

type imagesResponse struct {
	Success bool         `json:"success"`
	Images  []imageEntry `json:"images"`
	Message string       `json:"message,omitempty"`
}

// StatusError is returned for non-2xx gateway responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// BreakerConfig configures the client's circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.8,
		MinRequests:  5,
	}
}

// Config holds client settings.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimitRPM int // 0 disables rate limiting
	Breaker      BreakerConfig
}
