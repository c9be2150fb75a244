package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.StorageDirectory)
	require.Equal(t, 1024, cfg.BufferPoolMaxPages)
	require.Equal(t, 5432, cfg.Port)
	require.False(t, cfg.Debug)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]string{"--storage-directory", "/tmp/data", "--buffer-pool-max-pages", "42", "--port", "9999", "--debug"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/data", cfg.StorageDirectory)
	require.Equal(t, 42, cfg.BufferPoolMaxPages)
	require.Equal(t, 9999, cfg.Port)
	require.True(t, cfg.Debug)
}
