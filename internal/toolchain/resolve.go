package toolchain

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Source records which input produced the resolved toolchain.
type Source int

const (
	SourceDefault Source = iota
	SourceFlag
	SourceEnv
)

// String returns the string representation of the source
func (s Source) String() string {
	switch s {
	case SourceFlag:
		return "flag"
	case SourceEnv:
		return "env"
	default:
		return "default"
	}
}

// Profile names assigned when a profile file does not carry a [profile]
// section.
const (
	FlagProfileName    = "custom"
	EnvProfileName     = "env"
	DefaultProfileName = "debug"
)

// File is the on-disk profile format.
type File struct {
	Toolchain Toolchain         `toml:"toolchain"`
	Profile   *Profile          `toml:"profile"`
	Env       map[string]string `toml:"env"`
}

// Resolved is the output of Resolve.
type Resolved struct {
	Toolchain Toolchain
	Profile   Profile
	// Env holds extra environment entries for the build executor.
	Env    map[string]string
	Source Source
	Path   string
}

// Resolve picks exactly one toolchain source with precedence explicit flag
// path > environment-provided path > built-in default. Reading or parsing a
// requested file is fatal; the default never fails.
func Resolve(flagPath, envPath string) (*Resolved, error) {
	switch {
	case flagPath != "":
		return resolveFile(flagPath, SourceFlag, FlagProfileName)
	case envPath != "":
		return resolveFile(envPath, SourceEnv, EnvProfileName)
	default:
		tc, prof := Default()
		return &Resolved{Toolchain: tc, Profile: prof, Source: SourceDefault}, nil
	}
}

func resolveFile(path string, src Source, name string) (*Resolved, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	prof := Profile{Name: name}
	if f.Profile != nil {
		prof = *f.Profile
		if prof.Name == "" {
			prof.Name = name
		}
	}
	return &Resolved{Toolchain: f.Toolchain, Profile: prof, Env: f.Env, Source: src, Path: path}, nil
}

// LoadFile reads and decodes a profile file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	var f File
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if f.Toolchain.CC == "" && f.Toolchain.CXX == "" {
		return nil, fmt.Errorf("parse profile %s: [toolchain] must set cc or cxx", path)
	}
	return &f, nil
}

// Default returns the built-in clang toolchain and debug profile.
func Default() (Toolchain, Profile) {
	return Toolchain{
			CC:       "clang",
			CXX:      "clang++",
			AR:       "ar",
			CFlags:   []string{"-Wall", "-Wextra"},
			CXXFlags: []string{"-std=c++20", "-O2"},
			LDFlags:  []string{},
			ARFlags:  []string{"rcs"},
			LibDirs:  []string{"build/lib"},
			Libs:     []string{},
			LinkMode: LinkDriver,
			LinkC:    "clang",
			LinkCXX:  "clang++",
		}, Profile{
			Name:    DefaultProfileName,
			Defines: []string{"DEBUG=1"},
			Exclude: []string{},
		}
}
