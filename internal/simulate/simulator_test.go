package simulate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulate_failover.sh")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestNewScriptSimulator(t *testing.T) {
	t.Run("executable script accepted", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\nexit 0\n", 0755)
		sim, err := NewScriptSimulator(path, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, sim.Timeout)
	})

	t.Run("missing script rejected", func(t *testing.T) {
		_, err := NewScriptSimulator(filepath.Join(t.TempDir(), "missing.sh"), 0, nil)
		assert.Error(t, err)
	})

	t.Run("non-executable script rejected", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\nexit 0\n", 0644)
		_, err := NewScriptSimulator(path, 0, nil)
		assert.Error(t, err)
	})
}

func TestScriptSimulator_Inject(t *testing.T) {
	t.Run("successful script returns injection time", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\necho injecting outage\nexit 0\n", 0755)
		sim, err := NewScriptSimulator(path, time.Minute, nil)
		require.NoError(t, err)

		before := time.Now()
		injectedAt, err := sim.Inject(context.Background())
		require.NoError(t, err)
		assert.False(t, injectedAt.Before(before))
		assert.False(t, injectedAt.After(time.Now()))
	})

	t.Run("failing script surfaces the error", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\necho boom >&2\nexit 3\n", 0755)
		sim, err := NewScriptSimulator(path, time.Minute, nil)
		require.NoError(t, err)

		_, err = sim.Inject(context.Background())
		assert.Error(t, err)
	})

	t.Run("timeout kills a hung script", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\nsleep 30\n", 0755)
		sim, err := NewScriptSimulator(path, 100*time.Millisecond, nil)
		require.NoError(t, err)

		start := time.Now()
		_, err = sim.Inject(context.Background())
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestNewDirectSimulator(t *testing.T) {
	t.Run("nil config rejected", func(t *testing.T) {
		_, err := NewDirectSimulator(nil, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("nil inspectors rejected", func(t *testing.T) {
		_, err := NewDirectSimulator(&DirectConfig{}, nil, nil, nil)
		assert.Error(t, err)
	})
}
