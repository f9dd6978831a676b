package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	require.NoError(t, Init("not-a-level", false))
	require.True(t, Logger().Core().Enabled(0))
	require.False(t, Logger().Core().Enabled(-1))
}

func TestWithModuleReturnsChildLogger(t *testing.T) {
	require.NoError(t, Init("debug", true))
	child := WithModule("feed")
	require.NotNil(t, child)
	require.NotSame(t, Logger(), child)
}
