// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/drivehub/internal/app/features/auditlog"
	healthfeature "github.com/dalemusser/drivehub/internal/app/features/health"
	matchingsfeature "github.com/dalemusser/drivehub/internal/app/features/matchings"
	notificationsfeature "github.com/dalemusser/drivehub/internal/app/features/notifications"
	"github.com/dalemusser/drivehub/internal/app/matching"
	"github.com/dalemusser/drivehub/internal/app/store/audit"
	instructorstore "github.com/dalemusser/drivehub/internal/app/store/instructors"
	matchingstore "github.com/dalemusser/drivehub/internal/app/store/matchings"
	notificationstore "github.com/dalemusser/drivehub/internal/app/store/notifications"
	studentstore "github.com/dalemusser/drivehub/internal/app/store/students"
	"github.com/dalemusser/drivehub/internal/app/system/auditlog"
	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"github.com/dalemusser/drivehub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// DriveHub builds the stores over the one database, wires them into the
// matching service and its apply hook, and mounts the JSON API:
// /health, /matchings, /students/{id}/notifications and /audit.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokens(appCfg.CallerTokenHashKey, appCfg.CallerTokenBlockKey, appCfg.CallerTokenTTL, logger)
	if err != nil {
		logger.Error("caller token init failed", zap.Error(err))
		return nil, err
	}

	db := deps.DriveHubMongoDatabase

	// Stores
	students := studentstore.New(db, logger)
	instructors := instructorstore.New(db, students)
	matchings := matchingstore.New(db)
	inbox := notificationstore.New(db)
	auditStore := audit.New(db)

	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{Matching: appCfg.AuditLogMatching})

	svc := matching.New(matching.Deps{
		Repo:        matchings,
		Students:    students,
		Instructors: instructors,
		Recorder:    students,
		OnApply: matching.RecordAndNotify(matching.HookDeps{
			Recorder:    students,
			Instructors: instructors,
			Notifier:    inbox,
			Title:       appCfg.NotifyTitle,
			Log:         logger,
		}),
		Audit:              auditLogger,
		Log:                logger,
		DefaultMaxStudents: appCfg.DefaultMaxStudents,
		ApplyConcurrency:   appCfg.ApplyConcurrency,
	})

	r := chi.NewRouter()

	// Global auth middleware: decodes the bearer token, if any, into a
	// CallerContext on the request context.
	r.Use(tokens.LoadCaller)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.DriveHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Per-caller limit for the API below; nil when disabled.
	limited := r.With(ratelimit.New(appCfg.RateLimitPerMinute, appCfg.RateLimitBurst).Middleware(logger))

	// Matching API
	matchingsHandler := matchingsfeature.NewHandler(svc, logger)
	limited.Mount("/matchings", matchingsfeature.Routes(matchingsHandler))

	// Student inbox
	notificationsHandler := notificationsfeature.NewHandler(inbox, logger)
	limited.Mount("/students", notificationsfeature.Routes(notificationsHandler))

	// Audit log (admins only)
	auditHandler := auditlogfeature.NewHandler(auditStore, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler))

	return r, nil
}
