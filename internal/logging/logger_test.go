package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionLogger(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("production logger works")
}

func TestNewDevelopmentLogger(t *testing.T) {
	logger, err := New(Config{Development: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewWithFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harvester.log")

	logger, err := New(Config{
		File: FileConfig{
			Enabled:   true,
			Path:      path,
			MaxSizeMB: 1,
		},
	})
	require.NoError(t, err)

	logger.Info("written to file sink")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file sink")
}

func TestConfigureReplacesSharedLogger(t *testing.T) {
	previous := L
	t.Cleanup(func() { L = previous })

	require.NoError(t, Configure(Config{Development: true}))
	assert.NotNil(t, L)
	assert.NotEqual(t, previous, L)
}
