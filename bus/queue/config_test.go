package queue_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dtx-runloop/bus/queue"
)

// Тест значений по умолчанию.
func TestLoadConfig_Defaults(t *testing.T) {
	// t.Setenv восстанавливает значения после теста, затем переменные удаляются.
	for _, key := range []string{"DTX_RUNLOOP_POLL_INTERVAL", "DTX_RUNLOOP_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := queue.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Len(t, cfg.Options(), 2)
}

// Тест чтения значений из окружения.
func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DTX_RUNLOOP_POLL_INTERVAL", "250ms")
	t.Setenv("DTX_RUNLOOP_LOG_LEVEL", "debug")

	cfg, err := queue.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

// Тест ошибок разбора.
func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		level    string
		contains string
	}{
		{name: "некорректная длительность", interval: "скоро", level: "info", contains: "parse env:"},
		{name: "неположительный интервал", interval: "0s", level: "info", contains: "должен быть положительным"},
		{name: "некорректный уровень", interval: "10ms", level: "loud", contains: "parse env:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DTX_RUNLOOP_POLL_INTERVAL", tt.interval)
			t.Setenv("DTX_RUNLOOP_LOG_LEVEL", tt.level)

			_, err := queue.LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

// Тест применения уровня логирования из окружения к логгеру очереди.
func TestConfig_LogLevelApplied(t *testing.T) {
	t.Setenv("DTX_RUNLOOP_POLL_INTERVAL", "10ms")
	t.Setenv("DTX_RUNLOOP_LOG_LEVEL", "error")

	cfg, err := queue.LoadConfig()
	require.NoError(t, err)

	logger, logs := newTestLogger()
	q := queue.New(append(cfg.Options(), queue.WithLogger(logger))...)

	require.NoError(t, q.Push(context.Background(), newTestCommand("quiet", nil), true))
	require.NoError(t, q.Push(context.Background(), newTestCommand("failing", func(ctx context.Context) { panic("boom") }), true))
	require.NoError(t, q.Shutdown(context.Background()))

	out := logs.String()
	assert.NotContains(t, out, `"level":"DEBUG"`, "Записи ниже уровня из окружения отсекаются")
	assert.Contains(t, out, `"msg":"ошибка выполнения команды"`)
}
