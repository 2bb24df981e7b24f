package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/app"
)

// The worker delivers notifications queued by the API when notify.transport
// is asynq or kafka.
func main() {
	worker := fx.New(
		app.WorkerModule(),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{
				Logger: log,
			}
		}),
	)

	worker.Run()
}
