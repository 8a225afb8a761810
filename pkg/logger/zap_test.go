package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := &zapLogger{cfg: &ZapConfig{Level: tt.level}}
			assert.Equal(t, tt.expected, l.getLoggerLevel())
		})
	}
}

func TestWithFields_AttachesLoggerToContext(t *testing.T) {
	l := InitializeTestZapLogger().(*zapLogger)

	ctx := l.WithFields(context.Background(), "pass", "orphan_messages")

	assert.NotNil(t, ctx.Value(loggerKey{}))
	assert.NotSame(t, l.sugarLogger, l.ctx(ctx))
	assert.Same(t, l.sugarLogger, l.ctx(context.Background()))
}

func TestNilContextPanics(t *testing.T) {
	l := InitializeTestZapLogger()

	assert.Panics(t, func() {
		//nolint:staticcheck
		l.Info(nil, "boom")
	})
}
