// Package config loads and validates the index's workspace configuration
// (spec.md §5): the negotiated encoding, the workspace root, and the
// include/exclude glob and gem-name filters, plus the excluded
// magic-comment patterns the Declaration listener consults (spec.md §4.3).
// Grounded on the teacher's config package (internal/config/config.go,
// internal/config/kdl_config.go, internal/config/validator.go): a typed
// Config struct, a KDL loader, and a validator returning a fatal error on
// malformed input.
package config

import (
	"github.com/shopify/symbolindex/internal/location"
)

// Config is the resolved, validated configuration for one workspace.
type Config struct {
	Encoding location.Encoding
	RootPath string

	IncludedPatterns []string
	ExcludedPatterns []string

	IncludedGems []string
	ExcludedGems []string

	ExcludedMagicComments []string
}

// Default returns the configuration used when no configuration file is
// present: UTF-8 encoding, no include/exclude filtering beyond the
// workspace root, and no excluded magic comments.
func Default(rootPath string) *Config {
	return &Config{
		Encoding: location.UTF8,
		RootPath: rootPath,
	}
}
