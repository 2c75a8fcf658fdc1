package bootstrap

import (
	"context"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/ai"
	"github.com/Stanleyhoo1/Afterversed/internal/browser"
	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/console"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/internal/usecase"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// core wires everything except the front end. cfg is supplied already
// loaded so CLI flags can override the environment first.
func core(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),

		fx.Provide(
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewPlaywrightLauncher, fx.As(new(browser.Launcher))),
			browser.NewSessionResource,
			sessionReleaser,
			fx.Annotate(browser.NewActions, fx.As(new(ports.ActionInterface))),

			ai.NewPolicy,
			fx.Annotate(usecase.NewExecutor, fx.As(new(ports.TaskRunner))),

			usecase.NewUsecase,
		),

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			registerSessionShutdown,
		),

		fx.StartTimeout(10*time.Second),
	)
}

func sessionReleaser(session *browser.SessionResource) ports.SessionReleaser {
	return session
}

// NewConsoleApp runs the interactive console until it exits or a signal arrives.
func NewConsoleApp(cfg *config.Config) *fx.App {
	return fx.New(
		core(cfg),
		fx.Provide(console.NewInterface),
		fx.Invoke(runConsole),
	)
}

// Run starts the graph, hands the usecase service to fn and always stops the
// graph afterwards, which releases the browser.
func Run(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, svc *usecase.Service) error) (err error) {
	var svc *usecase.Service

	app := fx.New(core(cfg), fx.Populate(&svc))
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()

		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(ctx, svc)
}
