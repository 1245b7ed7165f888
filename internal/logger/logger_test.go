package logger

import (
	"testing"

	"rewards_system/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	Setup(&config.Config{LogLevel: "debug"})
	require.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, text := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	require.True(t, text)

	Setup(&config.Config{LogLevel: "loud", IsProd: true})
	require.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	require.True(t, isJSON)
}
