package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Info)
	changed := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.logLevel)
	other, ok := changed.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, other.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn)

	gl.Info(context.Background(), "hidden %d", 1)
	gl.Warn(context.Background(), "warned %s", "once")
	gl.Error(context.Background(), "failed %s", "twice")

	assert.Equal(t, 0, recorded.FilterMessage("hidden 1").Len())
	assert.Equal(t, 1, recorded.FilterMessage("warned once").Len())
	assert.Equal(t, 1, recorded.FilterMessage("failed twice").Len())
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), query("SELECT 1", 0), errors.New("db down"))

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), query("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), query("UPDATE kv", 1), nil)

		entries := recorded.FilterMessage("Slow SQL").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("normal query at info level", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Info, WithSlowThreshold(0))
		reqCtx, _ := WithRequestID(ctx, zap.NewNop(), "req-7")
		gl.Trace(reqCtx, time.Now(), query("SELECT value FROM kv", 1), nil)

		entries := recorded.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
	})

	t.Run("silent", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Silent)
		gl.Trace(ctx, time.Now(), query("SELECT 1", 0), errors.New("ignored"))
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	const stmt = "INSERT INTO storefront_kv (storage_key,value) VALUES (?,?)"

	t.Run("hides bound values by default", func(t *testing.T) {
		gl, _ := newObservedGorm(gormlogger.Info)
		sql, params := gl.ParamsFilter(context.Background(), stmt, "sifx3_token", "secret-token")
		assert.Equal(t, stmt, sql)
		assert.Nil(t, params)
	})

	t.Run("keeps bound values when asked", func(t *testing.T) {
		gl, _ := newObservedGorm(gormlogger.Info, WithBoundValues())
		_, params := gl.ParamsFilter(context.Background(), stmt, "sifx3_cart", "[]")
		assert.Equal(t, []any{"sifx3_cart", "[]"}, params)
	})

	t.Run("survives log mode changes", func(t *testing.T) {
		gl, _ := newObservedGorm(gormlogger.Info)
		changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
		require.True(t, ok)
		_, params := changed.ParamsFilter(context.Background(), stmt, "k", "v")
		assert.Nil(t, params)
	})
}

func TestGormLogger_TraceErrorCarriesRequestID(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Error)
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-checkout")

	gl.Trace(ctx, time.Now(), query("UPDATE storefront_kv SET value = ?", 0), errors.New("disk full"))

	entries := recorded.FilterMessage("SQL Error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-checkout", fields["request_id"])
	assert.Equal(t, int64(0), fields["rows"])
	assert.Equal(t, "disk full", fields["error"])
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)
