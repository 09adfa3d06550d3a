package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/buildctx"
	"github.com/ghost-build/ghost/internal/discover"
	"github.com/ghost-build/ghost/internal/hooks"
	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/ninja"
	"github.com/ghost-build/ghost/internal/toolchain"
)

// Mode selects how far a run goes.
type Mode int

const (
	// ModeGenerate stops after the build description is written
	ModeGenerate Mode = iota
	// ModeBuild also runs the executor and the after_build hook
	ModeBuild
)

func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeBuild:
		return "build"
	default:
		return "unknown"
	}
}

// Output file names.
const (
	NinjaFile           = "build.ninja"
	CompileCommandsFile = "compile_commands.json"
)

// Options configures one invocation.
type Options struct {
	Mode Mode
	// Root is the workspace root; relative member paths resolve against it
	Root string
	// Manifest is the workspace manifest name relative to Root
	Manifest string
	// ProfileFlag and ProfileEnv are the two profile file sources, in
	// precedence order
	ProfileFlag string
	ProfileEnv  string
	Env         string
	HookScript  string
	Version     string

	Shell        hooks.Shell
	Executor     Executor
	Logger       *zap.Logger
	ProgressFunc func(current, total int, message string)
}

// DefaultOptions returns options for a build of the current directory.
func DefaultOptions() *Options {
	return &Options{
		Mode:       ModeBuild,
		Root:       ".",
		Manifest:   manifest.FileName,
		Env:        buildctx.DefaultEnv,
		HookScript: hooks.DefaultScript,
		Version:    "dev",
	}
}

// BuildResult describes a completed run.
type BuildResult struct {
	RunID     string
	Context   *buildctx.Context
	Workspace *manifest.Workspace
	Graph     *Result
	// Order is the topological order of members; build order itself stays
	// the declaration order
	Order    []string
	Warnings []OrderWarning

	BuildDir            string
	NinjaPath           string
	CompileCommandsPath string
	Env                 map[string]string

	ManifestPath    string
	ProfilePath     string
	HookScript      string
	MemberManifests []string

	SourcesChanged bool
	Executed       bool
	Duration       time.Duration
}

// System coordinates one ghost invocation: toolchain resolution, context
// assembly, hooks, graph compilation, emission and execution.
// Thread-safety: a System is not designed for concurrent access.
type System struct {
	options *Options
	logger  *zap.Logger
}

// NewSystem creates a build system.
func NewSystem(opts *Options) (*System, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Manifest == "" {
		opts.Manifest = manifest.FileName
	}
	if opts.HookScript == "" {
		opts.HookScript = hooks.DefaultScript
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{options: opts, logger: logger}, nil
}

// Generate resolves the toolchain, runs the pre-generation hooks, compiles
// the workspace and writes the build description and compilation database.
func (s *System) Generate(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))

	res, err := toolchain.Resolve(s.options.ProfileFlag, s.options.ProfileEnv)
	if err != nil {
		return nil, err
	}
	bctx, err := buildctx.Assemble(s.options.Root, s.options.Env, res)
	if err != nil {
		return nil, err
	}
	root := bctx.WorkspaceRoot
	log.Debug("resolved toolchain",
		zap.String("source", res.Source.String()),
		zap.String("profile", bctx.Profile.Name),
		zap.String("root", root),
	)

	result := &BuildResult{
		RunID:        runID,
		Env:          res.Env,
		ManifestPath: filepath.Join(root, s.options.Manifest),
		ProfilePath:  absOrEmpty(res.Path),
		HookScript:   filepath.Join(bctx.ProjectRoot, s.options.HookScript),
	}

	engine := hooks.NewEngine(result.HookScript, s.shell(root), log)
	bctx, err = engine.Run(ctx, bctx, hooks.BeforeDiscover, hooks.BeforeGenerate, hooks.BeforeBuild)
	if err != nil {
		return nil, err
	}

	ws, err := manifest.LoadWorkspace(result.ManifestPath)
	if err != nil {
		return nil, err
	}
	result.Workspace = ws
	bctx.ApplyFragments(fragments(ws))
	result.Context = bctx

	loader := manifest.NewLoader(root)
	members := make([]*manifest.Member, 0, len(ws.MemberPaths()))
	for _, p := range ws.MemberPaths() {
		m, err := loader.Member(p)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
		result.MemberManifests = append(result.MemberManifests, filepath.Join(m.Root, manifest.FileName))
	}

	deps, err := CollectMetadata(loader, ws.MemberPaths())
	if err != nil {
		return nil, err
	}

	graph := NewPackageGraph(members)
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	result.Order = order
	result.Warnings = graph.OrderWarnings()
	for _, w := range result.Warnings {
		log.Warn("member declared before its dependency",
			zap.String("package", w.Package),
			zap.String("dependency", w.Dependency),
		)
	}

	buildDir := ws.BuildDir()
	result.BuildDir = buildDir
	compiler, err := NewCompiler(bctx, loader, deps, buildDir, log)
	if err != nil {
		return nil, err
	}
	s.progress(0, len(members), "compiling build graph")
	compiled, err := compiler.Compile(ws)
	if err != nil {
		return nil, err
	}
	result.Graph = compiled
	s.progress(len(members), len(members), fmt.Sprintf("compiled %d package(s)", len(compiled.Packages)))

	absBuild := buildDir
	if !filepath.IsAbs(absBuild) {
		absBuild = filepath.Join(root, buildDir)
	}
	if err := createOutputDirs(absBuild, compiled.Packages); err != nil {
		return nil, err
	}

	result.NinjaPath = filepath.Join(absBuild, NinjaFile)
	if err := ninja.Emit(compiled.Description, result.NinjaPath); err != nil {
		return nil, err
	}
	result.CompileCommandsPath = filepath.Join(root, CompileCommandsFile)
	if err := ninja.WriteCompileCommands(compiled.CompileCommands, result.CompileCommandsPath); err != nil {
		return nil, err
	}
	log.Info("wrote build description",
		zap.String("ninja", result.NinjaPath),
		zap.String("compile_commands", result.CompileCommandsPath),
		zap.Int("edges", len(compiled.Description.Edges)),
	)

	s.recordState(root, result, log)
	result.Duration = time.Since(start)
	return result, nil
}

// Build runs Generate and then, in ModeBuild, the executor followed by the
// after_build hook.
func (s *System) Build(ctx context.Context) (*BuildResult, error) {
	result, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}
	if s.options.Mode != ModeBuild {
		return result, nil
	}

	start := time.Now().Add(-result.Duration)
	root := result.Context.WorkspaceRoot
	rel, err := filepath.Rel(root, result.NinjaPath)
	if err != nil {
		rel = result.NinjaPath
	}

	exec := s.options.Executor
	if exec == nil {
		exec = NinjaExecutor{}
	}
	s.logger.Debug("running executor", zap.String("run_id", result.RunID), zap.String("file", rel))
	if err := exec.Run(ctx, root, filepath.ToSlash(rel), result.Env); err != nil {
		return nil, err
	}
	result.Executed = true

	engine := hooks.NewEngine(result.HookScript, s.shell(root), s.logger.With(zap.String("run_id", result.RunID)))
	bctx, err := engine.Run(ctx, result.Context, hooks.AfterBuild)
	if err != nil {
		return nil, err
	}
	result.Context = bctx
	result.Duration = time.Since(start)
	return result, nil
}

// PackageReport is the discover summary of one member.
type PackageReport struct {
	Name       string
	Root       string
	Discovered bool
	Total      int
	Compilable int
	Missing    []string
}

// DiscoverReport summarizes every member's sources.
type DiscoverReport struct {
	BuildDir string
	Packages []PackageReport
}

// Discover checks every member's sources against the filesystem. Explicit
// files missing on disk are collected for all members and returned as a
// MismatchError alongside the full report.
func (s *System) Discover(ctx context.Context) (*DiscoverReport, error) {
	root, err := manifest.Canonical("", s.options.Root)
	if err != nil {
		return nil, err
	}
	ws, err := manifest.LoadWorkspace(filepath.Join(root, s.options.Manifest))
	if err != nil {
		return nil, err
	}

	report := &DiscoverReport{BuildDir: ws.BuildDir()}
	loader := manifest.NewLoader(root)
	var mismatch MismatchError

	for _, p := range ws.MemberPaths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := loader.Member(p)
		if err != nil {
			return nil, err
		}
		if err := manifest.Validate(m.Manifest); err != nil {
			return nil, err
		}

		pr := PackageReport{Name: m.Manifest.Name(), Root: m.Root, Discovered: m.Manifest.Sources.Discovered()}
		files := m.Manifest.Sources.Files
		if pr.Discovered {
			include := m.Manifest.Sources.Include
			if len(include) == 0 {
				include = buildctx.DefaultDiscoverInclude
			}
			roots := m.Manifest.Sources.Roots
			if len(roots) == 0 {
				roots = buildctx.DefaultDiscoverRoots
			}
			list, err := discover.Discover(m.Root, discover.Options{
				Roots:    roots,
				Include:  include,
				Exclude:  m.Manifest.Sources.Exclude,
				BuildDir: ws.BuildDir(),
			})
			if err != nil {
				return nil, err
			}
			files = list.Files
		} else {
			pr.Missing = MissingSources(m)
		}

		pr.Total = len(files)
		for _, f := range files {
			if IsCompileSource(f) {
				pr.Compilable++
			}
		}
		if len(pr.Missing) > 0 {
			mismatch.Packages = append(mismatch.Packages, Missing{Package: pr.Name, Files: pr.Missing})
		}
		report.Packages = append(report.Packages, pr)
	}

	if len(mismatch.Packages) > 0 {
		return report, &mismatch
	}
	return report, nil
}

// GraphReport is the dependency view printed by `ghost graph`.
type GraphReport struct {
	Declared     []string
	Topological  []string
	Dependencies map[string][]string
	Warnings     []OrderWarning
}

// Graph loads the workspace members and analyzes their dependency graph
// without compiling anything.
func (s *System) Graph(ctx context.Context) (*GraphReport, error) {
	root, err := manifest.Canonical("", s.options.Root)
	if err != nil {
		return nil, err
	}
	ws, err := manifest.LoadWorkspace(filepath.Join(root, s.options.Manifest))
	if err != nil {
		return nil, err
	}

	loader := manifest.NewLoader(root)
	members := make([]*manifest.Member, 0, len(ws.MemberPaths()))
	for _, p := range ws.MemberPaths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := loader.Member(p)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	g := NewPackageGraph(members)
	report := &GraphReport{
		Declared:     g.Order(),
		Dependencies: make(map[string][]string, len(members)),
		Warnings:     g.OrderWarnings(),
	}
	for _, name := range report.Declared {
		report.Dependencies[name] = g.Dependencies(name)
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return report, err
	}
	report.Topological = order
	return report, nil
}

func (s *System) shell(root string) hooks.Shell {
	if s.options.Shell != nil {
		return s.options.Shell
	}
	return hooks.SystemShell{Dir: root}
}

func (s *System) progress(current, total int, message string) {
	if s.options.ProgressFunc != nil {
		s.options.ProgressFunc(current, total, message)
	}
}

func (s *System) recordState(root string, result *BuildResult, log *zap.Logger) {
	state, err := LoadState(root)
	if err != nil {
		log.Warn("ignoring unreadable generation state", zap.Error(err))
		state = &GenerationState{}
	}

	sources := make(map[string][]string, len(result.Graph.Packages))
	for _, p := range result.Graph.Packages {
		sources[p.Name] = p.Sources
	}
	result.SourcesChanged = state.SourcesChanged(sources)
	if result.SourcesChanged {
		log.Debug("source set changed since last generation")
	}

	if err := state.Record(result.Inputs(), sources, result.Context.Profile.Name, result.RunID, s.options.Version); err != nil {
		log.Warn("failed to record generation state", zap.Error(err))
		return
	}
	if err := state.SaveState(root); err != nil {
		log.Warn("failed to save generation state", zap.Error(err))
	}
}

func createOutputDirs(buildDir string, packages []*PackageOutput) error {
	dirs := []string{filepath.Join(buildDir, "lib"), filepath.Join(buildDir, "bin")}
	for _, p := range packages {
		dirs = append(dirs, filepath.Join(buildDir, "obj", p.Name))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

func fragments(ws *manifest.Workspace) map[string]buildctx.Fragment {
	out := make(map[string]buildctx.Fragment, len(ws.Profiles))
	for name, f := range ws.Profiles {
		out[name] = buildctx.Fragment{Defines: f.Defines, Exclude: f.Exclude}
	}
	return out
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// IsMismatch reports whether err carries a source mismatch.
func IsMismatch(err error) bool {
	var m *MismatchError
	return errors.As(err, &m)
}
