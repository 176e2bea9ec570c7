// internal/observability/logger_test.go
package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize_OnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	Initialize(Config{Level: "debug", Format: "json", ServiceName: "first"}, zapcore.AddSync(&discardSyncer{}))
	first := GetLogger()
	require.NotNil(t, first)

	// A second call must not replace the logger.
	Initialize(Config{Level: "error", Format: "json", ServiceName: "second"}, zapcore.AddSync(&discardSyncer{}))
	assert.Same(t, first, GetLogger())
}

func TestInitialize_InvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	Initialize(Config{Level: "not-a-level", Format: "console", ServiceName: "t"}, zapcore.AddSync(&discardSyncer{}))

	logger := GetLogger()
	require.NotNil(t, logger)
	// Debug must be filtered out at the fallback info level.
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestGetLogger_BeforeInitializeReturnsFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Must be usable without panicking.
	logger.Debug("fallback logger smoke test")
}

type discardSyncer struct{}

func (d *discardSyncer) Write(p []byte) (int, error) { return len(p), nil }
func (d *discardSyncer) Sync() error                 { return nil }
