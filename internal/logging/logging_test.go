package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nikbrunner/marks/internal/logging"
)

func TestNew(t *testing.T) {
	l, err := logging.New("debug", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = logging.New("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = logging.New("loud", false)
	assert.Error(t, err)
}

func TestNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logging.Named(zap.New(core), "service").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "service", logs.All()[0].ContextMap()["component"])

	assert.NotNil(t, logging.Named(nil, "x"))
}
