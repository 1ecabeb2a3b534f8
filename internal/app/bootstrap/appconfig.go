// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries what is specific to DriveHub: the MongoDB connection,
// caller token keys, matching defaults, audit destinations and the
// per-operation database deadlines.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Caller tokens (bearer tokens minted by auth.Tokens)
	CallerTokenHashKey  string        // HMAC key, at least 32 bytes
	CallerTokenBlockKey string        // optional AES key (16, 24 or 32 bytes)
	CallerTokenTTL      time.Duration // 0 means tokens never expire

	// Matching behaviour
	DefaultMaxStudents int    // capacity for instructors without their own limit
	ApplyConcurrency   int    // instructors processed in parallel during apply
	NotifyTitle        string // title of the notification sent on apply

	// Per-caller request limits on the matching API; 0 disables
	RateLimitPerMinute int
	RateLimitBurst     int

	// Audit logging: "all", "db", "log" or "off"
	AuditLogMatching string

	// Database deadlines; zero keeps the built-in default
	TimeoutPing  time.Duration
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutApply time.Duration
}
