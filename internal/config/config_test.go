package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/location"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, location.UTF8, cfg.Encoding)
	assert.Equal(t, dir, cfg.RootPath)
	assert.Empty(t, cfg.ExcludedPatterns)
}

func TestLoadParsesKnownKeys(t *testing.T) {
	dir := t.TempDir()
	content := `
encoding "utf-16"
included_patterns "lib/**/*.rb" "app/**/*.rb"
excluded_patterns "spec/**"
included_gems "activesupport"
excluded_gems "debug"
excluded_magic_comments "frozen_string_literal" "encoding"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, location.UTF16, cfg.Encoding)
	assert.Equal(t, []string{"lib/**/*.rb", "app/**/*.rb"}, cfg.IncludedPatterns)
	assert.Equal(t, []string{"spec/**"}, cfg.ExcludedPatterns)
	assert.Equal(t, []string{"activesupport"}, cfg.IncludedGems)
	assert.Equal(t, []string{"debug"}, cfg.ExcludedGems)
	assert.Equal(t, []string{"frozen_string_literal", "encoding"}, cfg.ExcludedMagicComments)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	content := `bogus_key "oops"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config_validation")
}

func TestLoadRejectsInvalidEncoding(t *testing.T) {
	dir := t.TempDir()
	content := `encoding "latin-1"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadRejectsInvalidGlob(t *testing.T) {
	dir := t.TempDir()
	content := `excluded_patterns "[unterminated"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadRelativeRootResolvedAgainstWorkspace(t *testing.T) {
	dir := t.TempDir()
	content := `root "subdir"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "subdir"), cfg.RootPath)
}
