package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New(false, false)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger, err = New(true, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1), "debug level must be enabled")
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", TruncateForLog("short", 10))
	assert.Equal(t, "", TruncateForLog("anything", 0))
	assert.Equal(t, strings.Repeat("a", 5)+"...", TruncateForLog(strings.Repeat("a", 20), 5))
	assert.Equal(t, "trimmed", TruncateForLog("  trimmed  ", 10))
}
