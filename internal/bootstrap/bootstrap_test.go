package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AppConfig: &config.AppConfig{
			LogLevel:      "info",
			LogMaxSizeMB:  1,
			LogMaxBackups: 1,
			TraceExporter: "none",
			ServiceName:   "navigator-test",
		},
	}
}

func TestNewLoggerTeesIntoFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.LogFile = filepath.Join(t.TempDir(), "navigator.log")

	logger, err := newLogger(cfg)
	require.NoError(t, err)

	logger.Info("Session launched", zap.String("url", "https://www.gov.uk"))
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.AppConfig.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Session launched"`)
	assert.Contains(t, string(data), `"url":"https://www.gov.uk"`)
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppConfig.LogLevel = "error"

	logger, err := newLogger(cfg)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.WarnLevel))
	assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestNewTraceProvider(t *testing.T) {
	for _, exporter := range []string{"none", "stdout", "jaeger"} {
		t.Run(exporter, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.AppConfig.TraceExporter = exporter

			lc := fxtest.NewLifecycle(t)

			tp, err := newTraceProvider(lc, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NotNil(t, tp)

			lc.RequireStart()
			lc.RequireStop()
		})
	}
}
