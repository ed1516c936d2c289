// Command symbolindex is a thin harness demonstrating the wiring between
// configuration loading and the index (spec.md §6): it loads the
// workspace's optional KDL configuration, walks the root directory
// honoring its include/exclude patterns, and indexes whatever source files
// it discovers. It is not a language server — CLI wrapping and editor
// protocol lifecycle are explicit spec.md Non-goals — and is meant to be
// exercised from integration tests, not shipped as a user command surface.
// Grounded on cmd/lci/main.go's flag-to-config loading sequence, minus the
// urfave/cli framework it wraps that sequence in.
package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shopify/symbolindex/internal/config"
	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/index"
	"github.com/shopify/symbolindex/internal/listener"
	"github.com/shopify/symbolindex/internal/location"
)

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	ix, cfg, err := Run(root)
	if err != nil {
		slog.Error("symbolindex: run failed", "root", root, "err", err)
		os.Exit(1)
	}

	fmt.Printf("indexed workspace %s (encoding=%v): %d indexing errors\n", cfg.RootPath, cfg.Encoding, len(ix.IndexingErrors()))
}

// Run loads cfg from root, walks root honoring its include/exclude
// patterns, and indexes every discovered .rb file with fixtureParser — a
// stand-in for the real syntax tree producer, which spec.md places out of
// scope as an external collaborator. It returns the populated Index
// alongside the Config used to build it, so tests can assert on either.
func Run(root string) (*index.Index, *config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	files, err := discoverFiles(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("discover files: %w", err)
	}

	ix := index.New()
	var parser fixtureParser
	uris := make([]entry.URI, len(files))
	for i, f := range files {
		uris[i] = entry.URI(f)
	}
	opts := index.FileOptions{Encoding: cfg.Encoding, CollectComments: true}
	err = ix.IndexAll(uris, nil, parser, opts, func(processed, total int) bool {
		slog.Debug("symbolindex: indexing", "processed", processed, "total", total)
		return true
	})
	if err != nil {
		return nil, nil, fmt.Errorf("index workspace: %w", err)
	}
	return ix, cfg, nil
}

// discoverFiles walks cfg.RootPath collecting .rb files that satisfy
// cfg.IncludedPatterns (any file, when empty) and none of
// cfg.ExcludedPatterns, both matched against paths relative to the root
// (spec.md §6: "included_patterns, excluded_patterns (glob, honoring ** and
// {,})").
func discoverFiles(cfg *config.Config) ([]string, error) {
	var out []string
	err := filepath.WalkDir(cfg.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".rb") {
			return nil
		}
		rel, relErr := filepath.Rel(cfg.RootPath, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if len(cfg.IncludedPatterns) > 0 && !matchesAny(cfg.IncludedPatterns, rel) {
			return nil
		}
		if matchesAny(cfg.ExcludedPatterns, rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// fixtureParser stands in for the real syntax tree producer (an external
// collaborator spec.md never specifies). It parses every file to an empty
// Walker that declares nothing, which is enough to exercise
// index_single's read/delete/re-add sequence without a real parser
// dependency; integration tests that need populated entries construct a
// Listener directly and drive it by hand instead of going through Parse.
type fixtureParser struct{}

func (fixtureParser) Parse(uri entry.URI, content []byte, enc location.Encoding) (index.Walker, error) {
	return func(l *listener.Listener) error { return nil }, nil
}
