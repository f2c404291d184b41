package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "verify")
	assert.Contains(t, names, "simulate")
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "serve")

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestLoadEnv(t *testing.T) {
	t.Run("defaults load without a config file", func(t *testing.T) {
		cfg, logger, err := loadEnv("")
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer func() { _ = logger.Sync() }()

		assert.Equal(t, "us-east-1", cfg.Regions.Primary.Name)
	})

	t.Run("missing config file fails", func(t *testing.T) {
		_, _, err := loadEnv(t.TempDir() + "/missing.yaml")
		assert.Error(t, err)
	})
}
