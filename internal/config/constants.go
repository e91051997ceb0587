package config

import "time"

// Application constants
const (
	// Application Info
	AppName = "ALTUM"

	// EnvPrefix namespaces every environment variable, e.g. ALTUM_SERVER_PORT.
	EnvPrefix = "ALTUM"

	// Leveling defaults
	DefaultBenchmarkElevation = 725.000
	DefaultMaxUploadBytes     = 10 << 20
	DefaultBatchConcurrency   = 4
	DefaultMaxRows            = 5000
	DefaultMaxBatchSurveys    = 50

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
)
