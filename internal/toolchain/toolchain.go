// Package toolchain resolves the compiler, archiver and linker recipe used to
// generate the build description, together with the active build profile.
package toolchain

import "strings"

// Toolchain is the compiler/linker invocation recipe. The flat field set
// mirrors the [toolchain] table of a profile file and the ctx.toolchain value
// seen by hook scripts; Linker turns the link-related fields into a closed
// variant.
type Toolchain struct {
	CC           string   `json:"cc" toml:"cc"`
	CXX          string   `json:"cxx" toml:"cxx"`
	AR           string   `json:"ar" toml:"ar"`
	RC           string   `json:"rc,omitempty" toml:"rc"`
	Sysroot      string   `json:"sysroot,omitempty" toml:"sysroot"`
	TargetTriple string   `json:"target_triple,omitempty" toml:"target_triple"`
	CFlags       []string `json:"cflags" toml:"cflags"`
	CXXFlags     []string `json:"cxxflags" toml:"cxxflags"`
	LDFlags      []string `json:"ldflags" toml:"ldflags"`
	ARFlags      []string `json:"arflags,omitempty" toml:"arflags"`
	LibDirs      []string `json:"libdirs,omitempty" toml:"libdirs"`
	Libs         []string `json:"libs,omitempty" toml:"libs"`
	LinkMode     LinkMode `json:"link_mode,omitempty" toml:"link_mode"`
	Link         string   `json:"link,omitempty" toml:"link"`
	LinkC        string   `json:"link_c,omitempty" toml:"link_c"`
	LinkCXX      string   `json:"link_cxx,omitempty" toml:"link_cxx"`
	FuseLD       string   `json:"fuse_ld,omitempty" toml:"fuse_ld"`
}

// CompileFlags returns the C or C++ flag list with sysroot and target flags
// appended.
func (tc Toolchain) CompileFlags(cxx bool) []string {
	var flags []string
	if cxx {
		flags = append(flags, tc.CXXFlags...)
	} else {
		flags = append(flags, tc.CFlags...)
	}
	return append(flags, tc.targetFlags()...)
}

// LinkFlags returns ldflags with sysroot and target flags appended.
func (tc Toolchain) LinkFlags() []string {
	flags := append([]string{}, tc.LDFlags...)
	if _, msvc := tc.Linker().(MSVCLinker); msvc {
		return flags
	}
	return append(flags, tc.targetFlags()...)
}

func (tc Toolchain) targetFlags() []string {
	var flags []string
	if tc.Sysroot != "" {
		flags = append(flags, "--sysroot="+tc.Sysroot)
	}
	if tc.TargetTriple != "" {
		flags = append(flags, "--target="+tc.TargetTriple)
	}
	return flags
}

// UsesLibtool reports whether static archives are produced with libtool
// instead of an ar-compatible archiver.
func (tc Toolchain) UsesLibtool() bool {
	return strings.HasSuffix(tc.AR, "libtool")
}

// Profile is a named build variant.
type Profile struct {
	Name    string   `json:"name" toml:"name"`
	Defines []string `json:"defines" toml:"defines"`
	Exclude []string `json:"exclude" toml:"exclude"`
}

// Merge returns a copy of p with extra defines and exclusions appended.
func (p Profile) Merge(defines, exclude []string) Profile {
	out := Profile{Name: p.Name}
	out.Defines = append(append([]string{}, p.Defines...), defines...)
	out.Exclude = append(append([]string{}, p.Exclude...), exclude...)
	return out
}
