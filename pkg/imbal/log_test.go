package imbal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Log().Debug("split", zap.Int("train", 7))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "split", entry.Message)
	assert.Equal(t, int64(7), entry.ContextMap()["train"])

	SetLogger(nil)
	Log().Debug("dropped")
	assert.Equal(t, 1, logs.Len())
}
