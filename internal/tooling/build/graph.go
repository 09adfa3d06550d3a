package build

import (
	"fmt"
	"strings"

	"github.com/ghost-build/ghost/internal/manifest"
)

// PackageGraph is the directed graph of workspace members built from each
// package's direct and private dependency names. Names that are not
// workspace members are ignored.
type PackageGraph struct {
	order []string            // declaration order
	edges map[string][]string // package -> dependencies
}

// OrderWarning reports a member declared before one of its dependencies.
// Link order follows declaration order, so the dependency's archive will be
// missing from the dependent's link line if the dependent is an executable.
type OrderWarning struct {
	Package    string
	Dependency string
}

func (w OrderWarning) String() string {
	return fmt.Sprintf("%s is declared before its dependency %s", w.Package, w.Dependency)
}

// NewPackageGraph creates a graph from loaded members in declaration order.
func NewPackageGraph(members []*manifest.Member) *PackageGraph {
	g := &PackageGraph{edges: make(map[string][]string)}
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.Manifest.Name()] = struct{}{}
	}

	for _, m := range members {
		name := m.Manifest.Name()
		g.order = append(g.order, name)

		seen := make(map[string]struct{})
		deps := make([]string, 0)
		for _, d := range append(append([]string{}, m.Manifest.DirectDeps()...), m.Manifest.PrivateDeps()...) {
			if _, ok := known[d]; !ok {
				continue
			}
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			deps = append(deps, d)
		}
		g.edges[name] = deps
	}
	return g
}

// Order returns the members in declaration order.
func (g *PackageGraph) Order() []string {
	return append([]string{}, g.order...)
}

// Dependencies returns the member dependencies of name.
func (g *PackageGraph) Dependencies(name string) []string {
	deps := g.edges[name]
	result := make([]string, len(deps))
	copy(result, deps)
	return result
}

// TopologicalSort returns members with dependencies first. Ties are broken by
// declaration order so the result is deterministic. A cycle is reported as a
// DependencyCycle validation error naming the first member on the cycle.
func (g *PackageGraph) TopologicalSort() ([]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &manifest.ValidationError{
			Package: cycle[0],
			Kind:    manifest.DependencyCycle,
			Detail:  strings.Join(cycle, " -> "),
		}
	}

	inDegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		inDegree[name] = len(g.edges[name])
	}

	result := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(result) < len(g.order) {
		progressed := false
		for _, name := range g.order {
			if done[name] || inDegree[name] != 0 {
				continue
			}
			done[name] = true
			result = append(result, name)
			progressed = true
			for _, other := range g.order {
				for _, dep := range g.edges[other] {
					if dep == name {
						inDegree[other]--
					}
				}
			}
			break
		}
		if !progressed {
			break
		}
	}
	return result, nil
}

// FindCycle returns one dependency cycle as a closed path (first element
// repeated at the end), or nil.
func (g *PackageGraph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(string) bool
	visit = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		stack = append(stack, name)

		for _, dep := range g.edges[name] {
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if onStack[dep] {
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						break
					}
				}
				return true
			}
		}

		stack = stack[:len(stack)-1]
		onStack[name] = false
		return false
	}

	for _, name := range g.order {
		if !visited[name] && visit(name) {
			return cycle
		}
	}
	return nil
}

// OrderWarnings lists members declared before one of their dependencies.
// Declaration order is never rewritten; these are surfaced to the user.
func (g *PackageGraph) OrderWarnings() []OrderWarning {
	position := make(map[string]int, len(g.order))
	for i, name := range g.order {
		position[name] = i
	}
	var warnings []OrderWarning
	for _, name := range g.order {
		for _, dep := range g.edges[name] {
			if position[dep] > position[name] {
				warnings = append(warnings, OrderWarning{Package: name, Dependency: dep})
			}
		}
	}
	return warnings
}
