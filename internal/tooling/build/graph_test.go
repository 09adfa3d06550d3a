package build

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-build/ghost/internal/manifest"
)

func member(name string, direct []string, private ...string) *manifest.Member {
	return &manifest.Member{
		Root: "/ws/" + name,
		Manifest: &manifest.Package{
			Package: manifest.Identity{Name: name, Kind: manifest.KindStatic},
			Deps:    &manifest.Deps{Direct: direct, Private: private},
		},
	}
}

func TestNewPackageGraph(t *testing.T) {
	g := NewPackageGraph([]*manifest.Member{
		member("core", nil),
		member("net", []string{"core", "core", "zlib"}),
		member("app", []string{"net"}, "core"),
	})

	assert.Equal(t, []string{"core", "net", "app"}, g.Order())
	assert.Empty(t, g.Dependencies("core"))
	// zlib is not a member and the duplicate core collapses
	assert.Equal(t, []string{"core"}, g.Dependencies("net"))
	assert.Equal(t, []string{"net", "core"}, g.Dependencies("app"))
	assert.Empty(t, g.Dependencies("missing"))
}

func TestTopologicalSort(t *testing.T) {
	tests := []struct {
		name    string
		members []*manifest.Member
		want    []string
	}{
		{
			name:    "already ordered",
			members: []*manifest.Member{member("a", nil), member("b", []string{"a"}), member("c", []string{"b"})},
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "dependent declared first",
			members: []*manifest.Member{member("app", []string{"lib"}), member("lib", nil)},
			want:    []string{"lib", "app"},
		},
		{
			name:    "independent members keep declaration order",
			members: []*manifest.Member{member("z", nil), member("y", nil), member("x", nil)},
			want:    []string{"z", "y", "x"},
		},
		{
			name:    "private deps count",
			members: []*manifest.Member{member("app", nil, "util"), member("util", nil)},
			want:    []string{"util", "app"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPackageGraph(tt.members).TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := NewPackageGraph([]*manifest.Member{
		member("a", []string{"b"}),
		member("b", []string{"c"}),
		member("c", []string{"a"}),
	})

	assert.Equal(t, []string{"a", "b", "c", "a"}, g.FindCycle())

	_, err := g.TopologicalSort()
	require.Error(t, err)

	var verr *manifest.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, manifest.DependencyCycle, verr.Kind)
	assert.Equal(t, "a", verr.Package)
	assert.Equal(t, "a -> b -> c -> a", verr.Detail)
	assert.True(t, errors.Is(err, &manifest.ValidationError{Kind: manifest.DependencyCycle}))
}

func TestFindCycle_SelfDependency(t *testing.T) {
	g := NewPackageGraph([]*manifest.Member{member("a", []string{"a"})})
	assert.Equal(t, []string{"a", "a"}, g.FindCycle())
}

func TestFindCycle_Acyclic(t *testing.T) {
	g := NewPackageGraph([]*manifest.Member{
		member("a", nil),
		member("b", []string{"a"}),
		member("c", []string{"a", "b"}),
	})
	assert.Nil(t, g.FindCycle())
}

func TestOrderWarnings(t *testing.T) {
	g := NewPackageGraph([]*manifest.Member{
		member("app", []string{"net"}),
		member("net", []string{"core"}),
		member("core", nil),
	})

	warnings := g.OrderWarnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, OrderWarning{Package: "app", Dependency: "net"}, warnings[0])
	assert.Equal(t, OrderWarning{Package: "net", Dependency: "core"}, warnings[1])
	assert.Equal(t, "app is declared before its dependency net", warnings[0].String())

	ordered := NewPackageGraph([]*manifest.Member{member("core", nil), member("app", []string{"core"})})
	assert.Empty(t, ordered.OrderWarnings())
}
