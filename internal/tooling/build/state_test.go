package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadState_Missing(t *testing.T) {
	state, err := LoadState(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, state.Inputs)
	assert.Empty(t, state.Inputs)

	needs, changed, reason := state.NeedsRegenerate([]string{"a"}, "debug")
	assert.True(t, needs)
	assert.Equal(t, []string{"a"}, changed)
	assert.Equal(t, "no previous generation", reason)
}

func TestGenerationState_RoundTrip(t *testing.T) {
	root := writeTree(t, map[string]string{"ghost.build": "[workspace]\n", "a/ghost.build": "[package]\n"})
	inputs := []string{filepath.Join(root, "a", "ghost.build"), filepath.Join(root, "ghost.build")}
	sources := map[string][]string{"a": {"src/a.c"}}

	state := &GenerationState{}
	require.NoError(t, state.Record(inputs, sources, "debug", "run-1", "dev"))
	require.NoError(t, state.SaveState(root))
	assert.NoFileExists(t, filepath.Join(root, ".ghost", StateFile+".tmp"))

	loaded, err := LoadState(root)
	require.NoError(t, err)
	assert.Equal(t, state.Inputs, loaded.Inputs)
	assert.Equal(t, sources, loaded.Sources)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, "dev", loaded.Version)

	needs, _, _ := loaded.NeedsRegenerate(inputs, "debug")
	assert.False(t, needs)
}

func TestNeedsRegenerate(t *testing.T) {
	root := writeTree(t, map[string]string{"one": "1", "two": "2"})
	one, two := filepath.Join(root, "one"), filepath.Join(root, "two")

	state := &GenerationState{}
	require.NoError(t, state.Record([]string{one, two}, nil, "debug", "r", "dev"))

	needs, _, reason := state.NeedsRegenerate([]string{one, two}, "release")
	assert.True(t, needs)
	assert.Equal(t, "profile changed", reason)

	needs, _, reason = state.NeedsRegenerate([]string{one}, "debug")
	assert.True(t, needs)
	assert.Equal(t, "input removed: "+two, reason)

	require.NoError(t, os.WriteFile(two, []byte("changed"), 0644))
	needs, changed, reason := state.NeedsRegenerate([]string{one, two}, "debug")
	assert.True(t, needs)
	assert.Equal(t, []string{two}, changed)
	assert.Equal(t, "1 input(s) changed", reason)
}

func TestSourcesChanged(t *testing.T) {
	state := &GenerationState{Sources: map[string][]string{"a": {"x.c", "y.c"}}}

	assert.False(t, state.SourcesChanged(map[string][]string{"a": {"x.c", "y.c"}}))
	assert.True(t, state.SourcesChanged(map[string][]string{"a": {"x.c"}}))
	assert.True(t, state.SourcesChanged(map[string][]string{"a": {"x.c", "z.c"}}))
	assert.True(t, state.SourcesChanged(map[string][]string{"b": {"x.c", "y.c"}}))
	assert.True(t, state.SourcesChanged(map[string][]string{"a": {"x.c", "y.c"}, "b": nil}))
}

func TestLoadState_Corrupt(t *testing.T) {
	root := writeTree(t, map[string]string{".ghost/" + StateFile: "{not json"})
	_, err := LoadState(root)
	assert.Error(t, err)
}
