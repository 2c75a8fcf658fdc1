package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Stanleyhoo1/Afterversed/internal/bootstrap"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		logger := bootstrap.FallbackLogger()
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()

		stop()
		os.Exit(1)
	}
}
