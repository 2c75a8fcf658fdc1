package bootstrap

import (
	"os"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes to stderr, keeping stdout for results, and tees into a
// rotating JSON file when LOG_FILE is set.
func newLogger(config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true
	zapConfig.OutputPaths = []string{"stderr"}

	switch config.AppConfig.LogLevel {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if config.AppConfig.LogFile == "" {
		return logger, nil
	}

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.AppConfig.LogFile,
		MaxSize:    config.AppConfig.LogMaxSizeMB,
		MaxBackups: config.AppConfig.LogMaxBackups,
	})
	fileCore := zapcore.NewCore(fileEncoder, fileWriter, zapConfig.Level)

	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// FallbackLogger is used before configuration has been read.
func FallbackLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zap.InfoLevel,
	)

	return zap.New(core)
}
