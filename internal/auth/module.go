package auth

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/database"
	"github.com/elskow/authflow/internal/notify"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository for the configured driver
			fx.Annotate(
				func(manager *database.Manager) (Repository, error) {
					return NewRepositoryFor(context.Background(), manager)
				},
			),
			// Provide service
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, notifier notify.Dispatcher) *Service {
					return NewService(&config.Auth, config.Server.ClientURL, log, repo, notifier)
				},
			),
			// Provide session cookie
			fx.Annotate(
				func(config *config.AppConfig) *SessionCookie {
					return NewSessionCookie(&config.Auth)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(svc *Service, cookie *SessionCookie) *AuthMiddleware {
					return NewAuthMiddleware(svc.Tokens(), cookie)
				},
			),
			NewHandler,
		),
	)
}

// NewRepositoryFor picks the user store matching the manager's driver.
func NewRepositoryFor(ctx context.Context, manager *database.Manager) (Repository, error) {
	switch manager.Driver() {
	case config.DriverPostgres:
		return NewRepository(manager.DB()), nil
	case config.DriverMongo:
		return NewMongoRepository(ctx, manager.Mongo())
	case config.DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("no user repository for driver %q", manager.Driver())
	}
}
