package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ghost.profile")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const gccProfile = `
[toolchain]
cc = "gcc"
cxx = "g++"
ar = "gcc-ar"
cflags = ["-O1"]
cxxflags = ["-std=c++17"]
ldflags = ["-pthread"]
link_mode = "ld"
link = "ld.lld"

[env]
CCACHE_DIR = "/tmp/ccache"
`

func TestResolve_Default(t *testing.T) {
	res, err := Resolve("", "")
	require.NoError(t, err)

	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, "clang", res.Toolchain.CC)
	assert.Equal(t, "clang++", res.Toolchain.CXX)
	assert.Equal(t, "ar", res.Toolchain.AR)
	assert.Contains(t, res.Toolchain.CFlags, "-Wall")
	assert.Contains(t, res.Toolchain.CXXFlags, "-std=c++20")
	assert.Equal(t, DefaultProfileName, res.Profile.Name)
	assert.Equal(t, []string{"DEBUG=1"}, res.Profile.Defines)
}

func TestResolve_FlagBeatsEnv(t *testing.T) {
	flagPath := writeProfile(t, gccProfile)
	envPath := writeProfile(t, "[toolchain]\ncc = \"icx\"\ncxx = \"icpx\"\n")

	res, err := Resolve(flagPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, SourceFlag, res.Source)
	assert.Equal(t, "gcc", res.Toolchain.CC)
	assert.Equal(t, FlagProfileName, res.Profile.Name)
	assert.Equal(t, "/tmp/ccache", res.Env["CCACHE_DIR"])
}

func TestResolve_EnvBeatsDefault(t *testing.T) {
	envPath := writeProfile(t, "[toolchain]\ncc = \"icx\"\ncxx = \"icpx\"\n")

	res, err := Resolve("", envPath)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, res.Source)
	assert.Equal(t, "icx", res.Toolchain.CC)
	assert.Equal(t, EnvProfileName, res.Profile.Name)
}

func TestResolve_ProfileSection(t *testing.T) {
	path := writeProfile(t, gccProfile+`
[profile]
name = "release"
defines = ["NDEBUG"]
`)
	res, err := Resolve(path, "")
	require.NoError(t, err)
	assert.Equal(t, "release", res.Profile.Name)
	assert.Equal(t, []string{"NDEBUG"}, res.Profile.Defines)
}

func TestResolve_MissingExplicitFileIsFatal(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "nope.profile"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.profile")
}

func TestResolve_MalformedFileIsFatal(t *testing.T) {
	path := writeProfile(t, "[toolchain\ncc=")
	_, err := Resolve(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}

func TestLinker_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		tc      Toolchain
		rule    string
		command string
		flags   string
	}{
		{
			name:    "driver uses link_cxx",
			tc:      Toolchain{CXX: "clang++", LinkMode: LinkDriver, LinkCXX: "g++"},
			rule:    RuleLinkExe,
			command: "g++",
		},
		{
			name:    "driver falls back to cxx and adds fuse-ld",
			tc:      Toolchain{CXX: "clang++", LinkMode: LinkDriver, FuseLD: "lld"},
			rule:    RuleLinkExe,
			command: "clang++",
			flags:   "-fuse-ld=lld",
		},
		{
			name:    "empty mode is driver",
			tc:      Toolchain{CXX: "c++"},
			rule:    RuleLinkExe,
			command: "c++",
		},
		{
			name:    "ld uses link override",
			tc:      Toolchain{CXX: "clang++", LinkMode: LinkLD, Link: "ld.lld"},
			rule:    RuleLinkExe,
			command: "ld.lld",
		},
		{
			name:    "ld defaults to ld",
			tc:      Toolchain{CXX: "clang++", LinkMode: LinkLD},
			rule:    RuleLinkExe,
			command: "ld",
		},
		{
			name:    "msvc",
			tc:      Toolchain{CXX: "cl", LinkMode: LinkMSVC},
			rule:    RuleLinkExeMSVC,
			command: "link",
		},
		{
			name:    "unknown mode falls back to cxx driver",
			tc:      Toolchain{CXX: "clang++", LinkMode: "gold", LinkCXX: "g++", FuseLD: "gold"},
			rule:    RuleLinkExe,
			command: "clang++",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.tc.Linker()
			assert.Equal(t, tt.rule, l.Rule())
			assert.Equal(t, tt.command, l.Command())
			assert.Equal(t, tt.flags, l.Flags())
		})
	}
}

func TestLinker_Variants(t *testing.T) {
	_, ok := Toolchain{LinkMode: LinkLD}.Linker().(RawLinker)
	assert.True(t, ok)
	_, ok = Toolchain{LinkMode: LinkMSVC}.Linker().(MSVCLinker)
	assert.True(t, ok)
	_, ok = Toolchain{LinkMode: "bogus"}.Linker().(DriverLinker)
	assert.True(t, ok)
}

func TestCompileFlags_SysrootAndTarget(t *testing.T) {
	tc := Toolchain{
		CFlags:       []string{"-O2"},
		CXXFlags:     []string{"-std=c++20"},
		Sysroot:      "/sdk",
		TargetTriple: "aarch64-linux-gnu",
	}
	assert.Equal(t, []string{"-O2", "--sysroot=/sdk", "--target=aarch64-linux-gnu"}, tc.CompileFlags(false))
	assert.Equal(t, []string{"-std=c++20", "--sysroot=/sdk", "--target=aarch64-linux-gnu"}, tc.CompileFlags(true))
	assert.Equal(t, []string{"--sysroot=/sdk", "--target=aarch64-linux-gnu"}, tc.LinkFlags())
}

func TestUsesLibtool(t *testing.T) {
	assert.True(t, Toolchain{AR: "/usr/bin/libtool"}.UsesLibtool())
	assert.False(t, Toolchain{AR: "llvm-ar"}.UsesLibtool())
}

func TestProfileMerge(t *testing.T) {
	base := Profile{Name: "debug", Defines: []string{"DEBUG=1"}}
	merged := base.Merge([]string{"TRACE"}, []string{"**/bench/**"})

	assert.Equal(t, "debug", merged.Name)
	assert.Equal(t, []string{"DEBUG=1", "TRACE"}, merged.Defines)
	assert.Equal(t, []string{"**/bench/**"}, merged.Exclude)
	assert.Equal(t, []string{"DEBUG=1"}, base.Defines)
}
