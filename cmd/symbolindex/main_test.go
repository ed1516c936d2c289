package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/config"
)

func TestRun_IndexesDiscoveredRubyFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.rb"), []byte("class A\nend\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("not ruby"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "b.rb"), []byte("class B\nend\n"), 0o644))

	kdl := "root \"" + root + "\"\nexcluded_patterns \"vendor/**\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".symbolindex.kdl"), []byte(kdl), 0o644))

	ix, cfg, err := Run(root)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.RootPath)
	assert.Empty(t, ix.IndexingErrors())
}

func TestRun_MissingConfigFallsBackToDefault(t *testing.T) {
	root := t.TempDir()

	_, cfg, err := Run(root)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.RootPath)
}

func TestDiscoverFiles_HonorsExcludedPatterns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.rb"), []byte(""), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "spec"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "spec", "a_spec.rb"), []byte(""), 0o644))

	cfg := config.Default(root)
	cfg.ExcludedPatterns = []string{"spec/**"}

	files, err := discoverFiles(cfg)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "a.rb"), files[0])
}
