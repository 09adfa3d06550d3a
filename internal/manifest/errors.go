package manifest

import (
	"errors"
	"fmt"
)

// ErrNoMembers marks a manifest that parsed but declares no workspace
// members, such as a package manifest.
var ErrNoMembers = errors.New("workspace.members missing")

// ParseError reports a manifest that could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationErrorKind classifies a ValidationError.
type ValidationErrorKind int

const (
	UnsupportedKind ValidationErrorKind = iota
	EmptySources
	NoCompileUnits
	DependencyCycle
)

// String returns the string representation of the error kind
func (k ValidationErrorKind) String() string {
	switch k {
	case UnsupportedKind:
		return "unsupported_kind"
	case EmptySources:
		return "empty_sources"
	case NoCompileUnits:
		return "no_compile_units"
	case DependencyCycle:
		return "dependency_cycle"
	default:
		return "unknown"
	}
}

// ValidationError reports a package that parsed but cannot be built.
type ValidationError struct {
	Package string
	Kind    ValidationErrorKind
	Detail  string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnsupportedKind:
		return fmt.Sprintf("package '%s': unsupported package.type: %s", e.Package, e.Detail)
	case EmptySources:
		return fmt.Sprintf("package '%s': sources.files must not be empty", e.Package)
	case NoCompileUnits:
		return fmt.Sprintf("package '%s' has no compilable sources", e.Package)
	case DependencyCycle:
		return fmt.Sprintf("package '%s': dependency cycle: %s", e.Package, e.Detail)
	default:
		return fmt.Sprintf("package '%s': %s", e.Package, e.Detail)
	}
}

// Is lets errors.Is match on Package-agnostic sentinel values such as
// &ValidationError{Kind: EmptySources}.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Package == "" || t.Package == e.Package)
}
