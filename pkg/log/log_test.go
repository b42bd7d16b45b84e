package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestReplaceGlobals(t *testing.T) {
	previous := L()
	t.Cleanup(func() { ReplaceGlobals(previous) })

	logger, err := New(Config{Level: "debug"})
	require.NoError(t, err)

	ReplaceGlobals(logger)
	assert.Same(t, logger, L())
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	require.NotNil(t, L())
	Info("log package self-check")
}
