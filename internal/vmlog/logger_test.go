package vmlog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgearias2404/virtual-machine/internal/vmlog"
)

func TestOpenWritesTimestampedLevelTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	logger, closer, err := vmlog.Open(path)
	require.NoError(t, err)
	defer closer.Close()

	logger.Infof("CPU initialized")
	logger.Errorf("bad address: %d", 42)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "[INFO] CPU initialized")
	assert.Contains(t, contents, "[ERROR] bad address: 42")
}

func TestOpenTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.log")
	require.NoError(t, os.WriteFile(path, []byte("stale line\n"), 0o644))

	logger, closer, err := vmlog.Open(path)
	require.NoError(t, err)
	defer closer.Close()

	logger.Infof("fresh start")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "stale line"))
}

func TestDiscardSatisfiesLoggerWithoutPanicking(t *testing.T) {
	assert.NotPanics(t, func() {
		vmlog.Discard.Infof("x")
		vmlog.Discard.Warningf("x")
		vmlog.Discard.Errorf("x")
		vmlog.Discard.Interruptf("x")
		vmlog.Discard.Debugf("x")
	})
}
