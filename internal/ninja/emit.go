package ninja

import (
	"encoding/json"
	"fmt"
	"os"
)

// Description is a complete low-level build description: top-level
// variables followed by edges, each kept in production order.
type Description struct {
	Variables []Var
	Edges     []Edge
}

// AddVar appends a top-level variable.
func (d *Description) AddVar(name, value string) {
	d.Variables = append(d.Variables, Var{Name: name, Value: value})
}

// AddEdge appends an edge.
func (d *Description) AddEdge(e Edge) {
	d.Edges = append(d.Edges, e)
}

// Render returns the ninja text: the rule prelude, the variables and the
// edges.
func (d *Description) Render() string {
	w := NewWriter()
	w.Comment("generated by ghost; do not edit")
	w.Line("ninja_required_version = 1.3")
	w.Line("")
	for _, r := range Prelude {
		w.Rule(r)
	}
	for _, v := range d.Variables {
		w.Variable(v.Name, v.Value)
	}
	w.Line("")
	for _, e := range d.Edges {
		w.Build(e)
	}
	return w.String()
}

// Emit overwrites path with the rendered description.
func Emit(d *Description, path string) error {
	w := NewWriter()
	w.b.WriteString(d.Render())
	if err := w.WriteFile(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CompileCommand is one compilation-database row.
type CompileCommand struct {
	Directory string `json:"directory"`
	File      string `json:"file"`
	Command   string `json:"command"`
	Output    string `json:"output"`
}

// WriteCompileCommands overwrites path with a pretty-printed JSON array.
func WriteCompileCommands(entries []CompileCommand, path string) error {
	if entries == nil {
		entries = []CompileCommand{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
