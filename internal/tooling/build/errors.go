package build

import (
	"fmt"
	"strings"
)

// ExitMismatch is the process exit status for missing declared sources.
const ExitMismatch = 2

// Missing lists the declared sources of one package that are absent on disk.
type Missing struct {
	Package string
	Files   []string
}

// MismatchError reports declared source files missing on disk. It is the
// one failure with a distinct exit status.
type MismatchError struct {
	Packages []Missing
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	for i, m := range e.Packages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: missing %d file(s):", m.Package, len(m.Files))
		for _, f := range m.Files {
			fmt.Fprintf(&b, "\n  - %s", f)
		}
	}
	return b.String()
}

// ExitCode implements the exit status contract used by cmd/ghost.
func (e *MismatchError) ExitCode() int { return ExitMismatch }

// ExecutorError reports a failed run of the external build executor.
type ExecutorError struct {
	Binary string
	Err    error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Binary, e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }
