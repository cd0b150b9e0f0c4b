package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-mlprep/pkg/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := logging.New("debug", logging.FormatConsole)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = logging.New("WARN", "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewInvalid(t *testing.T) {
	t.Parallel()

	_, err := logging.New("loud", logging.FormatJSON)
	require.Error(t, err)

	_, err = logging.New("info", "xml")
	require.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logging.IntoContext(context.Background(), zap.New(core))

	logging.FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}

func TestFromContextDefault(t *testing.T) {
	t.Parallel()

	logger := logging.FromContext(context.Background())
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
