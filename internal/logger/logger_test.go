package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/steveire/grantlee/internal/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()
	for _, json := range []bool{true, false} {
		l, err := logger.New("warn", json)
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
	}

	_, err := logger.New("chatty", false)
	assert.Error(t, err)
}
