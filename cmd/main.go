package main

import (
	"flag"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/app"
	"github.com/elskow/authflow/internal/server"
)

func main() {
	env := flag.String("env", server.LoadEnv(), "deployment mode (development/production/testing)")
	configDir := flag.String("config", "", "directory containing config.toml")
	flag.Parse()

	os.Setenv("APP_ENV", *env)
	if *configDir != "" {
		os.Setenv("CONFIG_DIR", *configDir)
	}

	authApp := fx.New(
		app.Module(),
		fx.StartTimeout(30*time.Second),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{
				Logger: log,
			}
		}),
	)

	authApp.Run()
}
