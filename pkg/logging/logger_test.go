package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReplaceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := ReplaceLogger(zap.New(core))

	Warnf("JWT_SECRET is not set")
	Infof("user %s", "42")
	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "user 42", entries[1].Message)

	restore()
	Errorf("dropped")
	assert.Equal(t, 2, logs.Len())
}

func TestInitLoggingRejectsUnknownLevel(t *testing.T) {
	defer ReplaceLogger(zap.NewNop())()
	assert.Error(t, InitLogging("loud"))
	assert.NoError(t, InitLogging(""))
}
