// Package idxerrors defines the index's error taxonomy. None of these are
// ever panicked for data-dependent reasons: recoverable failures degrade to
// "no result" at the call site, and only ConfigValidationError is fatal,
// and only at configuration load time.
package idxerrors

import (
	"fmt"
	"time"
)

// Type discriminates the kind of failure, mirroring the taxonomy in §7.
type Type string

const (
	TypeUnresolvableAlias    Type = "unresolvable_alias"
	TypeNonExistingNamespace Type = "non_existing_namespace"
	TypeIndexing             Type = "indexing"
	TypeConfigValidation     Type = "config_validation"
)

// UnresolvableAliasError is signaled while chasing a constant alias chain
// when a segment resolves to an alias whose own target cannot be found.
// Callers treat it as "no match" rather than propagating it further.
type UnresolvableAliasError struct {
	Name string
}

func NewUnresolvableAliasError(name string) *UnresolvableAliasError {
	return &UnresolvableAliasError{Name: name}
}

func (e *UnresolvableAliasError) Error() string {
	return fmt.Sprintf("%s: cannot resolve alias target for %q", TypeUnresolvableAlias, e.Name)
}

// NonExistingNamespaceError is signaled during linearization when a name has
// no namespace entries at all.
type NonExistingNamespaceError struct {
	Name string
}

func NewNonExistingNamespaceError(name string) *NonExistingNamespaceError {
	return &NonExistingNamespaceError{Name: name}
}

func (e *NonExistingNamespaceError) Error() string {
	return fmt.Sprintf("%s: no namespace entries for %q", TypeNonExistingNamespace, e.Name)
}

// IndexingError records a per-enhancement or parser failure against the
// file being indexed. It is logged and appended to Index.indexing_errors;
// it never aborts indexing.
type IndexingError struct {
	Type        Type
	URI         string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewIndexingError creates an IndexingError for operation op against uri.
func NewIndexingError(uri, op string, err error) *IndexingError {
	return &IndexingError{
		Type:       TypeIndexing,
		URI:        uri,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithRecoverable marks whether the enclosing operation may be retried.
func (e *IndexingError) WithRecoverable(recoverable bool) *IndexingError {
	e.Recoverable = recoverable
	return e
}

func (e *IndexingError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.URI, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

func (e *IndexingError) Unwrap() error {
	return e.Underlying
}

// ConfigValidationError surfaces a malformed configuration file: unknown
// keys or wrong-typed values. It is fatal at load time only.
type ConfigValidationError struct {
	Type   Type
	Field  string
	Reason string
}

func NewConfigValidationError(field, reason string) *ConfigValidationError {
	return &ConfigValidationError{Type: TypeConfigValidation, Field: field, Reason: reason}
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Type, e.Field, e.Reason)
}
