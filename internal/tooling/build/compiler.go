package build

import (
	"path"
	"path/filepath"
	"sort"

	shellquote "github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/buildctx"
	"github.com/ghost-build/ghost/internal/discover"
	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/ninja"
	"github.com/ghost-build/ghost/internal/toolchain"
)

// PackageOutput is everything the compiler produced for one member.
type PackageOutput struct {
	Name            string
	Kind            manifest.Kind
	Root            string
	Sources         []string
	Objects         []string
	Artifact        string
	Edges           []ninja.Edge
	CompileCommands []ninja.CompileCommand
}

// Result is the compiled build graph of a workspace.
type Result struct {
	Description     *ninja.Description
	CompileCommands []ninja.CompileCommand
	Packages        []*PackageOutput
	// Libraries is the final accumulated static-library list.
	Libraries []string
}

// Compiler turns workspace members into ninja edges and compilation
// database entries. It is single-threaded; members are processed strictly
// in declaration order.
type Compiler struct {
	ctx      *buildctx.Context
	loader   *manifest.Loader
	deps     map[string]*DependencyMeta
	buildDir string
	linker   toolchain.Linker
	excludes *discover.Matcher
	logger   *zap.Logger
}

// NewCompiler resolves the link mode and profile exclusions once for the
// whole invocation. buildDir is relative to the workspace root.
func NewCompiler(bctx *buildctx.Context, loader *manifest.Loader, deps map[string]*DependencyMeta, buildDir string, logger *zap.Logger) (*Compiler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	excludes, err := discover.NewMatcher(bctx.Profile.Exclude...)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		ctx:      bctx,
		loader:   loader,
		deps:     deps,
		buildDir: buildDir,
		linker:   bctx.Toolchain.Linker(),
		excludes: excludes,
		logger:   logger,
	}, nil
}

// Compile processes every member of ws in declaration order. Static
// libraries are accumulated in that order and fed to every later
// executable.
func (c *Compiler) Compile(ws *manifest.Workspace) (*Result, error) {
	res := &Result{Description: &ninja.Description{}}
	c.emitVariables(res.Description)

	var libs []string
	for _, p := range ws.MemberPaths() {
		m, err := c.loader.Member(p)
		if err != nil {
			return nil, err
		}
		out, next, err := c.CompilePackage(m, libs)
		if err != nil {
			return nil, err
		}
		libs = next

		res.Packages = append(res.Packages, out)
		for _, e := range out.Edges {
			res.Description.AddEdge(e)
		}
		res.CompileCommands = append(res.CompileCommands, out.CompileCommands...)
	}
	res.Libraries = libs
	return res, nil
}

// CompilePackage compiles one member given the static libraries built so
// far and returns the extended library list. built is never modified.
func (c *Compiler) CompilePackage(m *manifest.Member, built []string) (*PackageOutput, []string, error) {
	pkg := m.Manifest
	if err := manifest.Validate(pkg); err != nil {
		return nil, nil, err
	}

	sources, err := c.Sources(m)
	if err != nil {
		return nil, nil, err
	}

	out := &PackageOutput{Name: pkg.Name(), Kind: pkg.Kind(), Root: m.Root, Sources: sources}
	includes := IncludeFlags(m.Root, pkg, c.deps)
	defines := DefineFlags(c.ctx.Profile, pkg, c.deps)
	includeVar := shellquote.Join(includes...)
	defineVar := shellquote.Join(defines...)

	objects := make(map[string]string)
	for _, rel := range sources {
		lang, ok := SourceLanguage(rel)
		if !ok {
			continue
		}
		if _, dup := objects[rel]; dup {
			continue
		}

		obj := ObjectPath(c.buildDir, pkg.Name(), rel)
		src := filepath.Join(m.Root, filepath.FromSlash(rel))
		rule, compiler := ninja.RuleCC, c.ctx.Toolchain.CC
		if lang == LangCXX {
			rule, compiler = ninja.RuleCXX, c.ctx.Toolchain.CXX
		}

		out.Edges = append(out.Edges, ninja.Edge{
			Rule:    rule,
			Outputs: []string{obj},
			Inputs:  []string{src},
			Vars: []ninja.Var{
				{Name: "includes", Value: includeVar},
				{Name: "defines", Value: defineVar},
			},
		})
		out.CompileCommands = append(out.CompileCommands, c.compileCommand(compiler, lang, src, obj, defines, includes))
		objects[rel] = obj
	}

	if len(objects) == 0 {
		return nil, nil, &manifest.ValidationError{Package: pkg.Name(), Kind: manifest.NoCompileUnits}
	}
	out.Objects = sortedObjects(objects)

	libs := append([]string{}, built...)
	switch pkg.Kind() {
	case manifest.KindStatic:
		out.Artifact = ArchivePath(c.buildDir, pkg.Name())
		rule := ninja.RuleAR
		if c.ctx.Toolchain.UsesLibtool() {
			rule = ninja.RuleLibtoolStatic
		}
		out.Edges = append(out.Edges, ninja.Edge{Rule: rule, Outputs: []string{out.Artifact}, Inputs: out.Objects})
		libs = append(libs, out.Artifact)

	case manifest.KindExe:
		_, msvc := c.linker.(toolchain.MSVCLinker)
		out.Artifact = ExecutablePath(c.buildDir, pkg.Name(), msvc)
		link := CollectLinkInputs(c.ctx.Toolchain, c.libDir(), m.Root, pkg, c.deps)
		inputs := append(append([]string{}, out.Objects...), built...)
		out.Edges = append(out.Edges, ninja.Edge{
			Rule:    c.linker.Rule(),
			Outputs: []string{out.Artifact},
			Inputs:  inputs,
			Vars: []ninja.Var{
				{Name: "libdirs", Value: shellquote.Join(LibDirFlags(c.linker, link.Dirs)...)},
				{Name: "libs", Value: shellquote.Join(LibFlags(c.linker, link.Libs)...)},
			},
		})

	case manifest.KindShared, manifest.KindInterface, manifest.KindTest:
		c.logger.Debug("package kind not emitted", zap.String("package", pkg.Name()), zap.String("kind", string(pkg.Kind())))
	}

	c.logger.Debug("compiled package",
		zap.String("package", pkg.Name()),
		zap.Int("objects", len(out.Objects)),
		zap.Strings("libraries", libs),
	)
	return out, libs, nil
}

// Sources returns the package-relative source list: the explicit files, or
// a discovery result when the package declares roots or include patterns
// (falling back to the context's discovery roots), minus profile
// exclusions. Explicit files missing on disk produce a MismatchError.
func (c *Compiler) Sources(m *manifest.Member) ([]string, error) {
	pkg := m.Manifest
	var files []string

	if pkg.Sources.Discovered() {
		include := pkg.Sources.Include
		if len(include) == 0 {
			include = c.ctx.DiscoverInclude
		}
		roots := pkg.Sources.Roots
		if len(roots) == 0 {
			roots = c.ctx.DiscoverRoots
		}
		list, err := discover.Discover(m.Root, discover.Options{
			Roots:    roots,
			Include:  include,
			Exclude:  append(append([]string{}, pkg.Sources.Exclude...), c.ctx.DiscoverExclude...),
			BuildDir: c.buildDir,
		})
		if err != nil {
			return nil, err
		}
		files = list.Files
	} else {
		if missing := MissingSources(m); len(missing) > 0 {
			return nil, &MismatchError{Packages: []Missing{{Package: pkg.Name(), Files: missing}}}
		}
		files = pkg.Sources.Files
	}

	kept := make([]string, 0, len(files))
	for _, f := range files {
		if c.excludes.Match(filepath.ToSlash(f)) {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil, &manifest.ValidationError{Package: pkg.Name(), Kind: manifest.EmptySources}
	}
	return kept, nil
}

// MissingSources returns the explicit source files of m absent on disk, in
// declaration order.
func MissingSources(m *manifest.Member) []string {
	var missing []string
	for _, f := range m.Manifest.Sources.Files {
		if !exists(filepath.Join(m.Root, filepath.FromSlash(f))) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (c *Compiler) libDir() string {
	return path.Join(filepath.ToSlash(c.buildDir), "lib")
}

// emitVariables writes the toolchain-level variables. Link-mode dispatch is
// resolved here once, not per edge.
func (c *Compiler) emitVariables(d *ninja.Description) {
	tc := c.ctx.Toolchain
	libDirs := firstSeen(append(append([]string{}, tc.LibDirs...), c.libDir()))

	d.AddVar("builddir", c.buildDir)
	d.AddVar("cc", tc.CC)
	d.AddVar("cxx", tc.CXX)
	d.AddVar("ar", tc.AR)
	d.AddVar("arflags", shellquote.Join(tc.ARFlags...))
	d.AddVar("cflags", shellquote.Join(tc.CompileFlags(false)...))
	d.AddVar("cxxflags", shellquote.Join(tc.CompileFlags(true)...))
	d.AddVar("ldflags", shellquote.Join(tc.LinkFlags()...))
	d.AddVar("defines", "")
	d.AddVar("includes", "")
	d.AddVar("libdirs", shellquote.Join(LibDirFlags(c.linker, libDirs)...))
	d.AddVar("libs", shellquote.Join(LibFlags(c.linker, tc.Libs)...))
	d.AddVar("link", c.linker.Command())
	d.AddVar("linkflags", c.linker.Flags())
}

func (c *Compiler) compileCommand(compiler string, lang Language, src, obj string, defines, includes []string) ninja.CompileCommand {
	root := c.ctx.WorkspaceRoot
	objAbs := filepath.Join(root, filepath.FromSlash(obj))

	args := []string{compiler, "-MMD", "-MF", objAbs + ".d"}
	args = append(args, c.ctx.Toolchain.CompileFlags(lang == LangCXX)...)
	args = append(args, defines...)
	args = append(args, includes...)
	args = append(args, "-c", src, "-o", objAbs)

	return ninja.CompileCommand{
		Directory: root,
		File:      src,
		Command:   shellquote.Join(args...),
		Output:    objAbs,
	}
}

func sortedObjects(objects map[string]string) []string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = objects[k]
	}
	return out
}
