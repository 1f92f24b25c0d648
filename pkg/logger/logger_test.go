package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitialize_InvalidLevel(t *testing.T) {
	err := Initialize(Config{Level: "loud", Environment: "development"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitialize_Development(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: "debug", Environment: "development"}))
	defer func() { Log = zap.NewNop() }()

	assert.NotNil(t, Log)
	assert.True(t, Log.Core().Enabled(zap.DebugLevel))
}

func TestInitialize_ProductionWritesRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Initialize(Config{Level: "info", Environment: "production", LogDir: dir, ServiceName: "codecom-api"}))
	defer func() { Log = zap.NewNop() }()

	Info("hello from test", zap.String("kind", "feedback"))
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"service":"codecom-api"`)
}

func TestTraceFields_NoSpan(t *testing.T) {
	assert.Empty(t, traceFields(context.Background()))
}
