package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/auth"
	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/database"
	"github.com/elskow/authflow/internal/migration"
	"github.com/elskow/authflow/internal/notify"
	"github.com/elskow/authflow/internal/server"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		Base(),

		// Storage, schema first so the server starts against the latest one
		database.Module(),
		migration.Module(),

		// Email delivery
		notify.Module(),

		// Auth Module
		auth.NewModule(),

		// Servers
		fx.Provide(
			server.NewChecker,
			server.NewServer,
			server.NewHealthServer,
		),

		// Start the servers
		fx.Invoke(registerHooks),
	)
}

// Base provides the logger and configuration shared by every binary.
func Base() fx.Option {
	return fx.Options(
		fx.Provide(newLogger),
		fx.Provide(server.LoadConfig),
	)
}

// WorkerModule runs only the notification consumer.
func WorkerModule() fx.Option {
	return fx.Options(
		Base(),
		notify.WorkerModule(),
	)
}

// newLogger follows the mode the configuration resolved, so a mode set only
// in .env applies to logging too.
func newLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	return server.NewLogger(cfg.Server.Mode)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	shutdowner fx.Shutdowner,
	srv *server.Server,
	healthSrv *server.HealthServer,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("failed to start server", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			go func() {
				if err := healthSrv.Start(); err != nil {
					log.Error("failed to start health server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down servers...")
			healthSrv.Stop()
			return srv.Stop(ctx)
		},
	})
}
