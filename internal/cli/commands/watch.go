package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/tooling/build"
	"github.com/ghost-build/ghost/internal/watch"
)

var (
	watchProfile string
	watchRun     bool
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the build description when inputs change",
		Long: `Watch the workspace and regenerate build.ninja and compile_commands.json
whenever a manifest, profile file, hook script or C/C++ source changes.

Adding, removing or renaming a source file regenerates; editing one only
rebuilds. With --run, ninja is run after every regeneration or edit.`,
		Example: `  # Keep compile_commands.json current while editing
  ghost watch

  # Rebuild on every change
  ghost watch --run`,
		RunE: runWatch,
	}

	cmd.Flags().StringVarP(&watchProfile, "profile", "p", "", "Toolchain profile file (TOML)")
	cmd.Flags().BoolVar(&watchRun, "run", false, "Run ninja after each change")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	system, err := s.system(cmd, build.ModeGenerate, watchProfile)
	if err != nil {
		return err
	}

	skip := []string{manifest.DefaultBuildDir}
	if ws, err := manifest.LoadWorkspace(filepath.Join(s.root, s.cfg.Manifest)); err == nil {
		skip = []string{filepath.ToSlash(ws.BuildDir())}
	}
	patterns := append([]string{}, watch.DefaultPatterns...)
	if base := filepath.Base(s.cfg.Manifest); base != manifest.FileName {
		patterns = append(patterns, "**/"+base)
	}

	handler := &watchHandler{
		session:  s,
		system:   system,
		executor: s.executor(cmd),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}
	sess, err := watch.NewSession(watch.SessionOptions{
		Watch: watch.Options{
			Root:     s.root,
			Patterns: patterns,
			Skip:     skip,
			Debounce: s.cfg.Watch.Debounce,
			Logger:   s.logger,
		},
		Manifest: filepath.Base(s.cfg.Manifest),
		Run:      watchRun,
	}, handler)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := color.New(color.FgCyan)
	if rootNoColor {
		info.DisableColor()
	}
	info.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", s.root)
	return sess.Run(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// watchHandler regenerates through a build.System and runs ninja against the
// last generated description. Failures are printed and the session keeps
// watching.
type watchHandler struct {
	session  *session
	system   *build.System
	executor build.Executor
	out      io.Writer
	errOut   io.Writer

	mu   sync.Mutex
	last *build.BuildResult
}

func (h *watchHandler) Regenerate(ctx context.Context, impact *watch.Impact) (bool, error) {
	if len(impact.Added) == 0 && len(impact.Removed) == 0 && len(impact.Inputs) > 0 && !h.inputsChanged(impact.Inputs) {
		h.session.logger.Debug("inputs unchanged, skipping generation")
		return false, nil
	}

	result, err := h.system.Generate(ctx)
	if err != nil {
		fmt.Fprint(h.errOut, RenderError(err, rootNoColor))
		return false, nil
	}

	h.mu.Lock()
	h.last = result
	h.mu.Unlock()

	printResult(h.out, h.session, result)
	if len(impact.Inputs) == 0 && (len(impact.Added) > 0 || len(impact.Removed) > 0) {
		return result.SourcesChanged, nil
	}
	return true, nil
}

func (h *watchHandler) Rebuild(ctx context.Context) error {
	h.mu.Lock()
	last := h.last
	h.mu.Unlock()
	if last == nil {
		return nil
	}

	rel, err := filepath.Rel(h.session.root, last.NinjaPath)
	if err != nil {
		rel = last.NinjaPath
	}
	if err := h.executor.Run(ctx, h.session.root, filepath.ToSlash(rel), last.Env); err != nil {
		fmt.Fprint(h.errOut, RenderError(err, rootNoColor))
		return nil
	}
	ui.WriteSuccess(h.out, "Build completed", rootNoColor)
	return nil
}

// inputsChanged compares changed manifests, profiles and hook scripts with
// the hashes recorded by the last generation.
func (h *watchHandler) inputsChanged(changed []string) bool {
	state, err := build.LoadState(h.session.root)
	if err != nil {
		h.session.logger.Debug("no usable generation state", zap.Error(err))
		return true
	}

	seen := make(map[string]bool, len(state.Inputs))
	inputs := make([]string, 0, len(state.Inputs)+len(changed))
	for path := range state.Inputs {
		seen[path] = true
		inputs = append(inputs, path)
	}
	for _, path := range changed {
		if _, err := os.Stat(path); err == nil && !seen[path] {
			// not read by the last generation
			return true
		}
	}

	needs, _, reason := state.NeedsRegenerate(inputs, state.Profile)
	if needs {
		h.session.logger.Debug("regenerating", zap.String("reason", reason))
	}
	return needs
}
