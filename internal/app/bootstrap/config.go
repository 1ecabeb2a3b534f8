// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auditlog"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// devHashKey is only acceptable outside production.
const devHashKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for DriveHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, default_max_students, etc.
//   - Environment variables: DRIVEHUB_MONGO_URI, DRIVEHUB_DEFAULT_MAX_STUDENTS, etc.
//   - Command-line flags: --mongo_uri, --default_max_students, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "drivehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Caller tokens
	{Name: "caller_token_hash_key", Default: devHashKey, Desc: "HMAC key for caller tokens (at least 32 bytes; must be strong in production)"},
	{Name: "caller_token_block_key", Default: "", Desc: "Optional AES key for caller tokens (16, 24 or 32 bytes)"},
	{Name: "caller_token_ttl", Default: "12h", Desc: "Caller token lifetime (e.g., 12h, 30m; 0 disables expiry)"},

	// Matching
	{Name: "default_max_students", Default: 10, Desc: "Capacity for instructors with no max_students_per_period of their own"},
	{Name: "apply_concurrency", Default: 8, Desc: "Instructors processed in parallel when a matching is applied"},
	{Name: "notify_title", Default: "Your instructor has been assigned", Desc: "Title of the notification sent to each student on apply"},

	// Rate limiting
	{Name: "rate_limit_per_minute", Default: 120, Desc: "Requests per caller per minute on the matching API (0 disables)"},
	{Name: "rate_limit_burst", Default: 20, Desc: "Burst size for the per-caller rate limit"},

	// Audit logging settings
	{Name: "audit_log_matching", Default: "all", Desc: "Matching event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Database deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health-check pings"},
	{Name: "timeout_read", Default: "5s", Desc: "Deadline for single reads and list queries"},
	{Name: "timeout_write", Default: "10s", Desc: "Deadline for one matching update"},
	{Name: "timeout_apply", Default: "60s", Desc: "Deadline for applying a matching, including notifications"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DRIVEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DRIVEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		CallerTokenHashKey:  appValues.String("caller_token_hash_key"),
		CallerTokenBlockKey: appValues.String("caller_token_block_key"),
		CallerTokenTTL:      appValues.Duration("caller_token_ttl", 12*time.Hour),

		DefaultMaxStudents: appValues.Int("default_max_students"),
		ApplyConcurrency:   appValues.Int("apply_concurrency"),
		NotifyTitle:        appValues.String("notify_title"),

		RateLimitPerMinute: appValues.Int("rate_limit_per_minute"),
		RateLimitBurst:     appValues.Int("rate_limit_burst"),

		AuditLogMatching: appValues.String("audit_log_matching"),

		TimeoutPing:  appValues.Duration("timeout_ping", 0),
		TimeoutRead:  appValues.Duration("timeout_read", 0),
		TimeoutWrite: appValues.Duration("timeout_write", 0),
		TimeoutApply: appValues.Duration("timeout_apply", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Every problem found is reported, not just the first.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.MongoDatabase == "" {
		errs = multierr.Append(errs, errors.New("mongo_database is required"))
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		errs = multierr.Append(errs, fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize))
	}

	if _, err := auth.NewTokens(appCfg.CallerTokenHashKey, appCfg.CallerTokenBlockKey, appCfg.CallerTokenTTL, logger); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("caller token keys: %w", err))
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.CallerTokenHashKey == devHashKey {
		errs = multierr.Append(errs, errors.New("caller_token_hash_key must be changed in production"))
	}

	if appCfg.DefaultMaxStudents < 1 {
		errs = multierr.Append(errs, fmt.Errorf("default_max_students must be at least 1, got %d", appCfg.DefaultMaxStudents))
	}
	if appCfg.ApplyConcurrency < 1 {
		errs = multierr.Append(errs, fmt.Errorf("apply_concurrency must be at least 1, got %d", appCfg.ApplyConcurrency))
	}

	if appCfg.RateLimitPerMinute < 0 || appCfg.RateLimitBurst < 0 {
		errs = multierr.Append(errs, errors.New("rate_limit_per_minute and rate_limit_burst must not be negative"))
	}

	switch appCfg.AuditLogMatching {
	case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		errs = multierr.Append(errs, fmt.Errorf("audit_log_matching must be one of all, db, log, off; got %q", appCfg.AuditLogMatching))
	}

	return errs
}
