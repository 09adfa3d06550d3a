// Package ninja serializes rules, variables and build edges into the text
// format read by the ninja build executor, and writes the JSON compilation
// database consumed by editors and analyzers.
package ninja

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Rule is a ninja rule template.
type Rule struct {
	Name        string
	Command     string
	Description string
	Depfile     string
	Deps        string
}

// Var is one variable assignment. Order is preserved on output.
type Var struct {
	Name  string
	Value string
}

// Edge is one build statement.
type Edge struct {
	Rule    string
	Outputs []string
	Inputs  []string
	// Vars are edge-scoped overrides, such as the include flags of a
	// compile edge.
	Vars []Var
}

// Rule names of the fixed prelude.
const (
	RuleCC            = "cc"
	RuleCXX           = "cxx"
	RuleAR            = "ar"
	RuleLibtoolStatic = "libtool_static"
	RuleLinkExe       = "link_exe"
	RuleLinkExeMSVC   = "link_exe_msvc"
)

// Prelude is the fixed set of rule templates written at the top of every
// build description.
var Prelude = []Rule{
	{
		Name:        RuleCC,
		Command:     "$cc -MMD -MF $out.d $cflags $defines $includes -c $in -o $out",
		Description: "CC $out",
		Depfile:     "$out.d",
		Deps:        "gcc",
	},
	{
		Name:        RuleCXX,
		Command:     "$cxx -MMD -MF $out.d $cxxflags $defines $includes -c $in -o $out",
		Description: "CXX $out",
		Depfile:     "$out.d",
		Deps:        "gcc",
	},
	{
		Name:        RuleAR,
		Command:     "$ar $arflags $out $in",
		Description: "AR $out",
	},
	{
		Name:        RuleLibtoolStatic,
		Command:     "$ar -static -o $out $in",
		Description: "LIBTOOL $out",
	},
	{
		Name:        RuleLinkExe,
		Command:     "$link $linkflags $in -o $out $ldflags $libdirs $libs",
		Description: "LINK $out",
	},
	{
		Name:        RuleLinkExeMSVC,
		Command:     "$link /OUT:$out $in $ldflags $libdirs $libs",
		Description: "LINK $out",
	},
}

// Writer accumulates ninja text.
type Writer struct {
	b strings.Builder
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Line appends s followed by a newline.
func (w *Writer) Line(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

// Comment appends a # comment line.
func (w *Writer) Comment(s string) {
	w.Line("# " + s)
}

// Variable appends a top-level assignment.
func (w *Writer) Variable(name, value string) {
	w.Line(assignment(name, value))
}

// Rule appends a rule block followed by a blank line.
func (w *Writer) Rule(r Rule) {
	w.Line("rule " + r.Name)
	w.Line("  command = " + r.Command)
	if r.Description != "" {
		w.Line("  description = " + r.Description)
	}
	if r.Depfile != "" {
		w.Line("  depfile = " + r.Depfile)
	}
	if r.Deps != "" {
		w.Line("  deps = " + r.Deps)
	}
	w.Line("")
}

// Build appends a build statement and its indented overrides.
func (w *Writer) Build(e Edge) {
	outs := escapePaths(e.Outputs)
	ins := escapePaths(e.Inputs)
	line := fmt.Sprintf("build %s: %s", strings.Join(outs, " "), e.Rule)
	if len(ins) > 0 {
		line += " " + strings.Join(ins, " ")
	}
	w.Line(line)
	for _, v := range e.Vars {
		w.Line("  " + assignment(v.Name, v.Value))
	}
}

// String returns the accumulated text.
func (w *Writer) String() string {
	return w.b.String()
}

// WriteFile overwrites path with the accumulated text.
func (w *Writer) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(w.String()), 0644)
}

func assignment(name, value string) string {
	value = strings.ReplaceAll(value, "$", "$$")
	if value == "" {
		return name + " ="
	}
	return name + " = " + value
}

// EscapePath escapes the characters that are significant in a build line.
func EscapePath(p string) string {
	r := strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:", "\n", "")
	return r.Replace(p)
}

func escapePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = EscapePath(p)
	}
	return out
}
