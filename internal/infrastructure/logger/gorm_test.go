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
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func upsertLineFees() (string, int64) {
	return `INSERT INTO "order_line_fees" ("account_id","order_item_id") VALUES ('acct-1','OI-1') ON CONFLICT DO UPDATE`, 1
}

func TestGormLogger_Options(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.ignoreRecordNotFoundError)

	warn, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, warn.logLevel)
	assert.Equal(t, gormlogger.Info, gl.logLevel, "LogMode must not mutate the receiver")
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		elapsed   time.Duration
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{
			name:      "failed upsert",
			level:     gormlogger.Error,
			err:       errors.New("duplicate key value violates unique constraint"),
			wantMsg:   "Query failed",
			wantLevel: zapcore.ErrorLevel,
		},
		{
			name:      "slow upsert",
			level:     gormlogger.Warn,
			opts:      []GormLoggerOption{WithSlowThreshold(50 * time.Millisecond)},
			elapsed:   time.Second,
			wantMsg:   "Slow query",
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:      "fast upsert at info",
			level:     gormlogger.Info,
			wantMsg:   "Query executed",
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:  "fast upsert at warn",
			level: gormlogger.Warn,
		},
		{
			name:  "silent",
			level: gormlogger.Silent,
			err:   errors.New("connection reset"),
		},
		{
			name:  "record not found ignored",
			level: gormlogger.Error,
			err:   gormlogger.ErrRecordNotFound,
		},
		{
			name:      "record not found reported",
			level:     gormlogger.Error,
			opts:      []GormLoggerOption{WithIgnoreRecordNotFoundError(false)},
			err:       gormlogger.ErrRecordNotFound,
			wantMsg:   "Query failed",
			wantLevel: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gl.Trace(context.Background(), time.Now().Add(-tt.elapsed), upsertLineFees, tt.err)

			if tt.wantMsg == "" {
				assert.Empty(t, recorded.All())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, int64(1), logs[0].ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceSkipsDisabledLevel(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	called := false
	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		called = true
		return upsertLineFees()
	}, nil)

	assert.Empty(t, recorded.All())
	assert.False(t, called, "statement must not be rendered when debug is off")
}

func TestGormLogger_TraceCarriesContextIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")
	ctx, _ = WithAccountID(ctx, zap.NewNop(), "acct-1")
	ctx, _ = WithRunID(ctx, zap.NewNop(), "run-1")

	gl.Trace(ctx, time.Now(), upsertLineFees, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "acct-1", fields["account_id"])
	assert.Equal(t, "run-1", fields["run_id"])
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Info(context.Background(), "migrated %d tables", 7)
	gl.Warn(context.Background(), "pool exhausted after %s", "5s")
	gl.Error(context.Background(), "reconnect failed")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "pool exhausted after 5s", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Warn,
		"DEBUG":   gormlogger.Info,
		"verbose": gormlogger.Warn,
		"":        gormlogger.Warn,
	}

	for level, want := range tests {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, want, MapGormLogLevel(level))
		})
	}
}
