package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggers(t *testing.T) {
	InitLoggers()

	require.NotNil(t, InfoLogger)
	require.NotNil(t, WarnLogger)
	require.NotNil(t, ErrorLogger)

	// each logger must actually emit at its own level
	assert.True(t, InfoLogger.IsLevelEnabled(logrus.InfoLevel))
	assert.True(t, WarnLogger.IsLevelEnabled(logrus.WarnLevel))
	assert.False(t, ErrorLogger.IsLevelEnabled(logrus.WarnLevel))
	assert.True(t, ErrorLogger.IsLevelEnabled(logrus.ErrorLevel))
}
