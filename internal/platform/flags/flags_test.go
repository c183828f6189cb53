package flags

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipvcore/internal/platform/logger"
	"ipvcore/pkg/requestcontext"
)

const flagsYAML = `
features:
  resetIdentity: false
  dcmaw: true
featureSets:
  noApp:
    dcmaw: false
`

func TestProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flagsYAML), 0o600))

	p, err := Load(path, WithLogger(logger.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("base features and defaults", func(t *testing.T) {
		assert.False(t, p.Enabled(ctx, "resetIdentity", true))
		assert.True(t, p.IsEnabled(ctx, "dcmaw"))
		assert.True(t, p.IsEnabled(ctx, "unknown"))
		assert.False(t, p.Enabled(ctx, "unknown", false))
	})

	t.Run("feature set overrides base", func(t *testing.T) {
		setCtx := requestcontext.WithFeatureSet(ctx, "noApp")
		assert.False(t, p.IsEnabled(setCtx, "dcmaw"))
		assert.False(t, p.Enabled(setCtx, "resetIdentity", true))
	})

	t.Run("bad reload keeps previous flags", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("features: ["), 0o600))
		assert.Error(t, p.Reload())
		assert.True(t, p.IsEnabled(ctx, "dcmaw"))
	})
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flagsYAML), 0o600))
	p, err := Load(path, WithLogger(logger.Discard()))
	require.NoError(t, err)

	w, err := NewWatcher([]string{path}, p.Reload, logger.Discard())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("features:\n  dcmaw: false\n"), 0o600))
	assert.Eventually(t, func() bool {
		return !p.IsEnabled(context.Background(), "dcmaw")
	}, 5*time.Second, 50*time.Millisecond)
}
