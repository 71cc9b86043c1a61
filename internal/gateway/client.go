package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 20

// Observer is notified after every gateway request.
type Observer interface {
	ObserveGateway(endpoint string, d time.Duration, err error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client talks to the species/evolution gateway over HTTP. Every method
// returns the transport or service error; caching and error swallowing are
// the Resolver's job.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rateLimiter
	observer Observer
	logger   *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bc := cfg.Breaker
	if bc == (BreakerConfig{}) {
		bc = DefaultBreakerConfig()
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: newRateLimiter(cfg.RateLimitRPM),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "species-gateway",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// A 4xx answer means the gateway is up.
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// FetchForward returns the forward evolution options of name.
func (c *Client) FetchForward(ctx context.Context, name string) ([]EvolutionOption, error) {
	return c.fetchEvolutions(ctx, "forward", "/evolution/options/", name)
}

// FetchReverse returns the reverse evolution options of name.
func (c *Client) FetchReverse(ctx context.Context, name string) ([]EvolutionOption, error) {
	return c.fetchEvolutions(ctx, "reverse", "/evolution/reverse/", name)
}

func (c *Client) fetchEvolutions(ctx context.Context, endpoint, prefix, name string) ([]EvolutionOption, error) {
	var resp evolutionResponse
	if err := c.getJSON(ctx, endpoint, c.baseURL+prefix+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s evolutions for %q: %s", endpoint, name, failureMessage(resp.Message))
	}
	if resp.Data == nil {
		return []EvolutionOption{}, nil
	}
	return resp.Data, nil
}

// Search returns species names matching query, in gateway order.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	q := url.Values{"query": {query}}
	var resp searchResponse
	if err := c.getJSON(ctx, "search", c.baseURL+"/species/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("searching %q: %s", query, failureMessage(resp.Message))
	}
	if resp.Species == nil {
		return []string{}, nil
	}
	return resp.Species, nil
}

// Images returns image metadata keyed by species name. Species without an
// image are absent from the map.
func (c *Client) Images(ctx context.Context, names []string) (map[string]ImageInfo, error) {
	out := make(map[string]ImageInfo)
	if len(names) == 0 {
		return out, nil
	}
	q := url.Values{"species": {strings.Join(names, ",")}}
	var resp imagesResponse
	if err := c.getJSON(ctx, "images", c.baseURL+"/species/images?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetching images: %s", failureMessage(resp.Message))
	}
	for _, img := range resp.Images {
		if img.Species == "" || img.URL == "" {
			continue
		}
		out[img.Species] = ImageInfo{ImageURL: img.URL}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doGet(ctx, rawURL, out)
	})
	if c.observer != nil {
		c.observer.ObserveGateway(endpoint, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("gateway %s request: %w", endpoint, err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func failureMessage(msg string) string {
	if msg == "" {
		return "gateway reported failure"
	}
	return msg
}
