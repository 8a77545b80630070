// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: Every default that the loader, the CLI, or the tests rely on lives
// here so the YAML written by SaveDefault and the in-memory defaults agree.
package config

import "time"

// =============================================================================
// PROXY LISTENER
// =============================================================================

// DefaultPort is the port the proxy listens on.
const DefaultPort = 8080

// DefaultBindAddress keeps the proxy on loopback unless configured otherwise.
const DefaultBindAddress = "127.0.0.1"

// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
const DefaultReadHeaderTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server (safe for long generations).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultIdleTimeout closes idle client keep-alive connections.
const DefaultIdleTimeout = 120 * time.Second

// =============================================================================
// UPSTREAM CLIENT
// =============================================================================

// DefaultUpstreamTimeout caps one full upstream exchange. Expiry maps to 502.
const DefaultUpstreamTimeout = 10 * time.Minute

// DefaultDialTimeout is the TCP dial timeout.
const DefaultDialTimeout = 30 * time.Second

// DefaultMaxIdleConnsPerHost sizes the shared outbound pool.
const DefaultMaxIdleConnsPerHost = 10

// MaxRequestBodySize is the maximum allowed request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// MaxErrorBodyLogLen limits error response body in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// EVENT PIPELINE
// =============================================================================

// DefaultEventQueueSize is the capacity of the proxy -> aggregator queue.
const DefaultEventQueueSize = 1000

// DefaultArchiveQueueSize is the capacity of the aggregator -> archive queue.
const DefaultArchiveQueueSize = 100

// =============================================================================
// DASHBOARD
// =============================================================================

// DefaultTokenLimit is the budget the fuel gauge is drawn against.
const DefaultTokenLimit = 200_000

// DefaultMaxLogEntries is the ring buffer capacity of recent requests.
const DefaultMaxLogEntries = 100

// DefaultRefreshRateHz is how often the dashboard redraws.
const DefaultRefreshRateHz = 4

// DefaultPromptPreviewLength truncates the last prompt panel.
const DefaultPromptPreviewLength = 200

// =============================================================================
// ARCHIVE
// =============================================================================

// DefaultArchiveDirectory is where prompt files are written.
const DefaultArchiveDirectory = "~/.sherlock/prompts"

// DefaultRedisStream is the stream key used by the redis sink.
const DefaultRedisStream = "sherlock:requests"

// DefaultRedisMaxLen trims the redis stream (approximate).
const DefaultRedisMaxLen = 10_000

// DefaultArchiveFormats returns the formats written when none are configured.
func DefaultArchiveFormats() []string {
	return []string{"markdown", "json"}
}

// =============================================================================
// ADMIN
// =============================================================================

// DefaultAdminPort is the loopback port for /health, /stats and /ws.
const DefaultAdminPort = 8081

// =============================================================================
// PATHS
// =============================================================================

// DefaultHomeDir holds config, logs and archives.
const DefaultHomeDir = "~/.sherlock"

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "~/.sherlock/config.yaml"

// DefaultLogPath receives logs while the dashboard owns the terminal.
const DefaultLogPath = "~/.sherlock/sherlock.log"
