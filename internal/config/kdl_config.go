package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/shopify/symbolindex/internal/idxerrors"
	"github.com/shopify/symbolindex/internal/location"
)

const configFileName = ".symbolindex.kdl"

var knownTopLevelKeys = map[string]bool{
	"encoding":                true,
	"root":                    true,
	"included_patterns":       true,
	"excluded_patterns":       true,
	"included_gems":           true,
	"excluded_gems":           true,
	"excluded_magic_comments": true,
}

// Load reads the optional configuration file at the workspace root and
// returns a validated Config, per spec.md §5's schema
// {excluded_gems, included_gems, excluded_patterns, included_patterns,
// excluded_magic_comments}. Absence of the file is not an error: Default is
// returned instead. Unknown keys or wrong-typed values surface as a fatal
// ConfigValidationError.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, configFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(root), nil
	}
	if err != nil {
		return nil, idxerrors.NewConfigValidationError("file", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	cfg, err := parseKDL(string(content), root)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseKDL(content, root string) (*Config, error) {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, idxerrors.NewConfigValidationError("file", fmt.Sprintf("malformed KDL: %v", err))
	}

	cfg := Default(root)
	for _, n := range doc.Nodes {
		key := nodeName(n)
		if !knownTopLevelKeys[key] {
			return nil, idxerrors.NewConfigValidationError(key, "unknown configuration key")
		}
		for _, a := range n.Arguments {
			if _, ok := a.Value.(string); !ok {
				return nil, idxerrors.NewConfigValidationError(key, "expected string values")
			}
		}
		switch key {
		case "encoding":
			s, ok := firstStringArg(n)
			if !ok {
				return nil, idxerrors.NewConfigValidationError("encoding", "expected a string value")
			}
			enc, err := parseEncoding(s)
			if err != nil {
				return nil, idxerrors.NewConfigValidationError("encoding", err.Error())
			}
			cfg.Encoding = enc
		case "root":
			s, ok := firstStringArg(n)
			if !ok {
				return nil, idxerrors.NewConfigValidationError("root", "expected a string value")
			}
			if filepath.IsAbs(s) {
				cfg.RootPath = s
			} else {
				cfg.RootPath = filepath.Clean(filepath.Join(root, s))
			}
		case "included_patterns":
			cfg.IncludedPatterns = collectStringArgs(n)
		case "excluded_patterns":
			cfg.ExcludedPatterns = collectStringArgs(n)
		case "included_gems":
			cfg.IncludedGems = collectStringArgs(n)
		case "excluded_gems":
			cfg.ExcludedGems = collectStringArgs(n)
		case "excluded_magic_comments":
			cfg.ExcludedMagicComments = collectStringArgs(n)
		}
	}
	return cfg, nil
}

func parseEncoding(s string) (location.Encoding, error) {
	switch strings.ToLower(s) {
	case "utf-8", "utf8":
		return location.UTF8, nil
	case "utf-16", "utf16":
		return location.UTF16, nil
	case "utf-32", "utf32":
		return location.UTF32, nil
	default:
		return location.UTF8, fmt.Errorf("unrecognized encoding %q (expected utf-8, utf-16, or utf-32)", s)
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs gathers a node's string-typed arguments in order,
// matching the teacher's accommodation of both inline ("key \"a\" \"b\"")
// and block ("key { \"a\"; \"b\" }") KDL forms.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
