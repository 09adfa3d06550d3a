package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-build/ghost/internal/hooks"
	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func smallWorkspace() map[string]string {
	return map[string]string{
		"ghost.build": `
[workspace]
members = ["core", "app"]
`,
		"core/ghost.build": `
[package]
name = "core"
type = "static"

[sources]
files = ["src/core.c"]

[public]
include_dirs = ["include"]
`,
		"core/src/core.c":     "int core(void) { return 1; }\n",
		"core/include/core.h": "int core(void);\n",
		"app/ghost.build": `
[package]
name = "app"
type = "exe"

[sources]
files = ["src/main.cpp"]

[deps]
direct = ["core"]
`,
		"app/src/main.cpp": "int main() { return 0; }\n",
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "ghost", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	registered := make(map[string]bool)
	for _, c := range cmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range []string{"version", "build", "generate", "discover", "graph", "watch", "new"} {
		assert.True(t, registered[name], "expected command %s to be registered", name)
	}
}

func TestVersionCommand(t *testing.T) {
	old := Version
	Version = "1.2.3-test"
	defer func() { Version = old }()

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ghost version: 1.2.3-test")
	assert.Contains(t, out, "Go version:")
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := NewBuildCommand()
	assert.NotNil(t, cmd.Flags().Lookup("profile"))
	assert.NotNil(t, cmd.Flags().Lookup("no-run"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))

	mismatch := &build.MismatchError{Packages: []build.Missing{{Package: "core", Files: []string{"src/gone.c"}}}}
	assert.Equal(t, build.ExitMismatch, ExitCode(mismatch))
	assert.Equal(t, build.ExitMismatch, ExitCode(fmt.Errorf("discover: %w", mismatch)))
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "mismatch lists every package",
			err: &build.MismatchError{Packages: []build.Missing{
				{Package: "core", Files: []string{"src/gone.c"}},
				{Package: "app", Files: []string{"src/a.cpp", "src/b.cpp"}},
			}},
			want: []string{"core: missing 1 file(s)", "src/gone.c", "app: missing 2 file(s)", "src/b.cpp"},
		},
		{
			name: "unsupported kind suggests",
			err:  &manifest.ValidationError{Package: "core", Kind: manifest.UnsupportedKind, Detail: "statik"},
			want: []string{"unsupported package.type: statik", `package.type = "static"`},
		},
		{
			name: "unsupported kind lists kinds",
			err:  &manifest.ValidationError{Package: "core", Kind: manifest.UnsupportedKind, Detail: "framework"},
			want: []string{"static, shared, interface, exe, test"},
		},
		{
			name: "cycle",
			err:  &manifest.ValidationError{Package: "a", Kind: manifest.DependencyCycle, Detail: "a -> b -> a"},
			want: []string{"a -> b -> a", "Remove one of the [deps] entries"},
		},
		{
			name: "hook",
			err:  &hooks.ScriptError{Script: "build.lua", Callback: hooks.BeforeBuild, Err: errors.New("nope")},
			want: []string{"before_build", "nope", "not written"},
		},
		{
			name: "executor",
			err:  &build.ExecutorError{Binary: "ninja", Err: errors.New("exit status 1")},
			want: []string{"ninja failed: exit status 1", "ghost generate"},
		},
		{
			name: "other",
			err:  errors.New("something else"),
			want: []string{"something else"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderError(tt.err, true)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestValidateKind(t *testing.T) {
	k, err := validateKind("static")
	require.NoError(t, err)
	assert.Equal(t, manifest.KindStatic, k)

	_, err = validateKind("exee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "exe"`)

	_, err = validateKind("framework")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected one of")
}

func TestValidatePackageName(t *testing.T) {
	for _, ok := range []string{"core", "my-lib", "lib_2"} {
		assert.NoError(t, validatePackageName(ok), ok)
	}
	for _, bad := range []string{"", "../escape", "/abs", "has space", "dots.in.name"} {
		assert.Error(t, validatePackageName(bad), bad)
	}
}

func TestScaffoldPackage_ManifestsValidate(t *testing.T) {
	for _, kind := range manifest.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			files, err := scaffoldPackage("my-lib", kind)
			require.NoError(t, err)

			dir := writeWorkspace(t, files)
			pkg, err := manifest.LoadPackage(filepath.Join(dir, manifest.FileName))
			require.NoError(t, err)
			require.NoError(t, manifest.Validate(pkg))

			assert.Equal(t, "my-lib", pkg.Name())
			assert.Equal(t, kind, pkg.Kind())
			for _, src := range pkg.Sources.Files {
				assert.FileExists(t, filepath.Join(dir, src))
			}
		})
	}
}

func TestNewCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "-C", dir, "new", "core", "--type", "static")
	require.NoError(t, err)
	assert.Contains(t, out, "Created static package core")
	assert.FileExists(t, filepath.Join(dir, "core", manifest.FileName))
	assert.FileExists(t, filepath.Join(dir, "core", "src", "core.c"))
	assert.FileExists(t, filepath.Join(dir, "core", "include", "core.h"))

	_, err = run(t, "-C", dir, "new", "core")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "-C", dir, "new", "other", "--type", "statc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "static"`)
}

func TestGenerateCommand(t *testing.T) {
	dir := writeWorkspace(t, smallWorkspace())

	out, err := run(t, "-C", dir, "generate")
	require.NoError(t, err)

	assert.Contains(t, out, "2 package(s)")
	assert.Contains(t, out, filepath.Join("build", build.NinjaFile))
	assert.FileExists(t, filepath.Join(dir, "build", build.NinjaFile))
	assert.FileExists(t, filepath.Join(dir, build.CompileCommandsFile))
}

func TestGenerateCommand_FromSubdirectory(t *testing.T) {
	dir := writeWorkspace(t, smallWorkspace())

	_, err := run(t, "-C", filepath.Join(dir, "app", "src"), "generate")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "build", build.NinjaFile))
}

func TestGenerateCommand_MalformedRootManifest(t *testing.T) {
	files := smallWorkspace()
	files["ghost.build"] = "[workspace]\nmembers = [\"core\", \"app\"\n"
	dir := writeWorkspace(t, files)

	_, err := run(t, "-C", dir, "generate")
	var perr *manifest.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, filepath.Join(dir, manifest.FileName), perr.Path)
	assert.Contains(t, RenderError(err, true), "INVALID MANIFEST")
}

func TestGenerateCommand_ProfileRelativeToDirectory(t *testing.T) {
	files := smallWorkspace()
	files["profiles/gcc.toml"] = `
[toolchain]
cc = "gcc"
cxx = "g++"
ar = "ar"

[profile]
name = "gcc-debug"
`
	dir := writeWorkspace(t, files)

	out, err := run(t, "-C", dir, "generate", "--profile", filepath.Join("profiles", "gcc.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Profile gcc-debug")
}

func TestAbsPath(t *testing.T) {
	base := t.TempDir()
	assert.Equal(t, "", absPath(base, ""))
	assert.Equal(t, filepath.Join(base, "p.toml"), absPath(base, "p.toml"))
	abs := filepath.Join(base, "other.toml")
	assert.Equal(t, abs, absPath("/elsewhere", abs))
}

func TestDiscoverCommand(t *testing.T) {
	dir := writeWorkspace(t, smallWorkspace())

	out, err := run(t, "-C", dir, "discover")
	require.NoError(t, err)
	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "core")
	assert.Contains(t, out, "all sources present")
}

func TestDiscoverCommand_Mismatch(t *testing.T) {
	files := smallWorkspace()
	delete(files, "core/src/core.c")
	delete(files, "app/src/main.cpp")
	dir := writeWorkspace(t, files)

	out, err := run(t, "-C", dir, "discover")
	require.Error(t, err)
	assert.Equal(t, build.ExitMismatch, ExitCode(err))
	assert.Contains(t, out, "1 missing")

	var mismatch *build.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Len(t, mismatch.Packages, 2)
}

func TestGraphCommand(t *testing.T) {
	dir := writeWorkspace(t, smallWorkspace())

	out, err := run(t, "-C", dir, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "Declaration order")
	assert.Contains(t, out, "1. core")
	assert.Contains(t, out, "app -> core")
	assert.Contains(t, out, "Topological order")
}

func TestGraphCommand_OrderWarning(t *testing.T) {
	files := smallWorkspace()
	files["ghost.build"] = `
[workspace]
members = ["app", "core"]
`
	dir := writeWorkspace(t, files)

	out, err := run(t, "-C", dir, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "app is declared before its dependency core")
}

func TestOutsideWorkspace(t *testing.T) {
	_, err := run(t, "-C", t.TempDir(), "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in a ghost workspace")
}
