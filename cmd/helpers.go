package cmd

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/evodex/internal/cache"
	"github.com/ziadkadry99/evodex/internal/config"
	"github.com/ziadkadry99/evodex/internal/evolution"
	"github.com/ziadkadry99/evodex/internal/explorer"
	"github.com/ziadkadry99/evodex/internal/gateway"
	"github.com/ziadkadry99/evodex/internal/logging"
	"github.com/ziadkadry99/evodex/internal/metrics"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `evodex init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w\nFix %s or run `evodex init`", err, cfgFile)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, verbose)
}

// stack is everything one explorer session needs. All parts share a
// single cache and metrics collector.
type stack struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	resolver *gateway.Resolver
	builder  *evolution.Builder
}

func newStack(cfg *config.Config, logger *zap.Logger) *stack {
	collector := metrics.NewCollector()

	client := gateway.NewClient(gatewayConfig(cfg),
		gateway.WithObserver(collector),
		gateway.WithClientLogger(logger.Named("gateway")),
	)
	resolver := gateway.NewResolver(client, cache.New(cache.WithRecorder(collector)),
		gateway.WithSearchLimit(cfg.Explorer.SearchLimit),
		gateway.WithLogger(logger.Named("resolver")),
	)
	builder := evolution.NewBuilder(resolver,
		evolution.WithMaxDepth(cfg.Explorer.MaxDepth),
		evolution.WithCollapsedDepth(cfg.Explorer.CollapsedDepth),
		evolution.WithLargeFamilyTag(cfg.Explorer.LargeFamilyTag),
		evolution.WithConcurrency(cfg.Explorer.Concurrency),
		evolution.WithLogger(logger.Named("builder")),
	)

	return &stack{
		logger:   logger,
		metrics:  collector,
		resolver: resolver,
		builder:  builder,
	}
}

func (s *stack) controller(cfg *config.Config, opts ...explorer.Option) *explorer.Controller {
	base := []explorer.Option{
		explorer.WithDebounce(cfg.Explorer.Debounce()),
		explorer.WithMinQueryLength(cfg.Explorer.MinQueryLength),
		explorer.WithLogger(s.logger.Named("explorer")),
		explorer.WithBuildObserver(s.metrics),
	}
	return explorer.New(s.resolver, s.builder, append(base, opts...)...)
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	b := cfg.HTTP.Breaker
	return gateway.Config{
		BaseURL:      cfg.GatewayURL,
		Timeout:      cfg.HTTP.Timeout(),
		RateLimitRPM: cfg.HTTP.RateLimitRPM,
		Breaker: gateway.BreakerConfig{
			MaxRequests:  b.MaxRequests,
			Interval:     time.Duration(b.IntervalSec) * time.Second,
			Timeout:      time.Duration(b.TimeoutSec) * time.Second,
			FailureRatio: b.FailureRatio,
			MinRequests:  b.MinRequests,
		},
	}
}
