package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/cli/config"
	"github.com/ghost-build/ghost/internal/logging"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

// session is the per-invocation state shared by the workspace commands.
type session struct {
	cfg    *config.Config
	root   string
	logger *zap.Logger
}

// openSession locates the workspace root at or above the working directory
// and loads the settings stored there.
func openSession() (*session, error) {
	cfg, err := config.LoadFrom(rootDir)
	if err != nil {
		return nil, err
	}
	root, err := config.FindWorkspaceRoot(rootDir, cfg.Manifest)
	if err != nil {
		return nil, err
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	if abs, _ := filepath.Abs(rootDir); abs != root {
		// settings live next to the workspace manifest
		if cfg, err = config.LoadFrom(root); err != nil {
			return nil, err
		}
	}
	logger, err := logging.New(rootVerbose)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, root: root, logger: logger}, nil
}

// options builds System options for mode. profileFlag beats GHOST_PROFILE.
func (s *session) options(cmd *cobra.Command, mode build.Mode, profileFlag string) *build.Options {
	opts := build.DefaultOptions()
	opts.Mode = mode
	opts.Root = s.root
	opts.Manifest = s.cfg.Manifest
	opts.ProfileFlag = absPath(rootDir, profileFlag)
	opts.ProfileEnv = absPath(rootDir, s.cfg.Profile)
	opts.Env = s.cfg.Env
	opts.HookScript = s.cfg.HookScript
	opts.Version = Version
	opts.Logger = s.logger
	opts.Executor = s.executor(cmd)
	return opts
}

func (s *session) executor(cmd *cobra.Command) build.Executor {
	return build.NinjaExecutor{
		Binary: s.cfg.Ninja,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
}

func (s *session) system(cmd *cobra.Command, mode build.Mode, profileFlag string) (*build.System, error) {
	return build.NewSystem(s.options(cmd, mode, profileFlag))
}

// relative shortens path for display when it lies under the workspace root.
func (s *session) relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return path
	}
	return rel
}

// absPath resolves a relative p against the start directory given with
// -C, not the process working directory.
func absPath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(filepath.Join(base, p)); err == nil {
		return abs
	}
	return p
}
