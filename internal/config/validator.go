// Validate checks a loaded Config for internal consistency beyond what the
// KDL parser itself can catch: well-formed globs and a non-empty root.
// Grounded on the teacher's Validator (this file, pre-adaptation), which
// likewise ran after parsing and returned a fatal error rather than a list
// of warnings.
package config

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/shopify/symbolindex/internal/idxerrors"
)

func Validate(cfg *Config) error {
	if cfg.RootPath == "" {
		return idxerrors.NewConfigValidationError("root", "workspace root cannot be empty")
	}
	for _, p := range cfg.IncludedPatterns {
		if !doublestar.ValidatePattern(p) {
			return idxerrors.NewConfigValidationError("included_patterns", "invalid glob pattern: "+p)
		}
	}
	for _, p := range cfg.ExcludedPatterns {
		if !doublestar.ValidatePattern(p) {
			return idxerrors.NewConfigValidationError("excluded_patterns", "invalid glob pattern: "+p)
		}
	}
	return nil
}
