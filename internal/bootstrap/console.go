package bootstrap

import (
	"context"

	"github.com/Stanleyhoo1/Afterversed/internal/console"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runConsole(lc fx.Lifecycle, shutdowner fx.Shutdowner, consoleInterface *console.Interface, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("Starting navigator console")

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}

				if err := shutdowner.Shutdown(); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			consoleInterface.Stop()

			return nil
		},
	})
}

// registerSessionShutdown closes the shared browser when the app stops.
func registerSessionShutdown(lc fx.Lifecycle, session ports.SessionReleaser, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Releasing browser session")

			if err := session.Release(ctx); err != nil {
				logger.Error("Failed to release browser session", zap.Error(err))
			}

			return nil
		},
	})
}
