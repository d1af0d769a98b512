package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "json to stdout", cfg: Config{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "empty output", cfg: Config{Level: "warn", Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "branch.log")

	logger, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("hello", zap.Int64("account", 1))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"account":1`)
}

func TestNew_BadFileOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "branch.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel(""))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 200*time.Millisecond)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT * FROM CONTA", 2 }

	gl.Trace(ctx, time.Now(), fc, nil)
	gl.Trace(ctx, time.Now(), fc, errors.New("no such table"))
	gl.Trace(ctx, time.Now(), fc, gormlogger.ErrRecordNotFound)
	gl.Trace(ctx, time.Now().Add(-time.Second), fc, nil)

	assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("SLOW SQL").Len())
	// 正常查詢與 record not found 都記為 debug
	assert.Equal(t, 2, logs.FilterMessage("SQL Query").Len())
	assert.Equal(t, "gorm", logs.All()[0].LoggerName)
}

func TestGormLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 200*time.Millisecond).LogMode(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	gl.Error(context.Background(), "ignored %d", 1)

	assert.Zero(t, logs.Len())
}

func TestGormLogger_SlowThresholdDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, 0)

	gl.Trace(context.Background(), time.Now().Add(-time.Hour), func() (string, int64) { return "SELECT * FROM CONTA", 3 }, nil)

	assert.Zero(t, logs.FilterMessageSnippet("SLOW SQL").Len())
}
