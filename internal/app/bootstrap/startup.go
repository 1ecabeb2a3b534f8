// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/drivehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.TimeoutPing,
		Read:  appCfg.TimeoutRead,
		Write: appCfg.TimeoutWrite,
		Apply: appCfg.TimeoutApply,
	})
	cur := timeouts.Current()
	logger.Info("database deadlines",
		zap.Duration("ping", cur.Ping),
		zap.Duration("read", cur.Read),
		zap.Duration("write", cur.Write),
		zap.Duration("apply", cur.Apply))
	return nil
}
