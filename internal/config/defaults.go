package config

// DefaultPath is the config file used when --config is not given.
const DefaultPath = ".evodex.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GatewayURL: "http://localhost:8080",
		LogLevel:   "info",
		Explorer: ExplorerConfig{
			MaxDepth:       8,
			CollapsedDepth: 1,
			LargeFamilyTag: "digimon",
			SearchLimit:    10,
			MinQueryLength: 2,
			DebounceMS:     300,
			Concurrency:    1,
		},
		HTTP: HTTPConfig{
			TimeoutMS:    10000,
			RateLimitRPM: 0,
			Breaker: BreakerConfig{
				MaxRequests:  5,
				IntervalSec:  30,
				TimeoutSec:   60,
				FailureRatio: 0.8,
				MinRequests:  5,
			},
		},
		Server: ServerConfig{
			Port:   8080,
			DBPath: ".evodex/species.db",
		},
	}
}
