package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "drivehub_test",
		MongoMaxPoolSize:   10,
		MongoMinPoolSize:   1,
		CallerTokenHashKey: strings.Repeat("k", 32),
		CallerTokenTTL:     time.Hour,
		DefaultMaxStudents: 10,
		ApplyConcurrency:   4,
		AuditLogMatching:   "all",
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, validConfig(), testLogger()); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.MongoDatabase = ""
	cfg.DefaultMaxStudents = 0
	cfg.AuditLogMatching = "sometimes"

	err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger())
	if err == nil {
		t.Fatal("expected an error")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("expected 3 errors, got %d: %v", n, err)
	}
}

func TestValidateConfig_ShortHashKey(t *testing.T) {
	cfg := validConfig()
	cfg.CallerTokenHashKey = "short"

	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger()); err == nil {
		t.Error("expected short hash key to be rejected")
	}
}

func TestValidateConfig_DevKeyRejectedInProd(t *testing.T) {
	cfg := validConfig()
	cfg.CallerTokenHashKey = devHashKey

	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger()); err != nil {
		t.Errorf("dev key should be allowed in dev: %v", err)
	}
	if err := ValidateConfig(&config.CoreConfig{Env: "prod"}, cfg, testLogger()); err == nil {
		t.Error("dev key should be rejected in prod")
	}
}

func TestValidateConfig_PoolSizes(t *testing.T) {
	cfg := validConfig()
	cfg.MongoMinPoolSize = 50

	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger()); err == nil {
		t.Error("expected min > max to be rejected")
	}
}
