package build

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Executor runs the generated build description.
type Executor interface {
	Run(ctx context.Context, dir, file string, env map[string]string) error
}

// NinjaExecutor invokes the ninja binary as `<binary> -f <file>` in dir.
type NinjaExecutor struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts ninja and waits for it. The child inherits the process
// environment plus env; a non-zero exit is an ExecutorError.
func (n NinjaExecutor) Run(ctx context.Context, dir, file string, env map[string]string) error {
	bin := n.Binary
	if bin == "" {
		bin = "ninja"
	}

	cmd := exec.CommandContext(ctx, bin, "-f", file)
	cmd.Dir = dir
	cmd.Stdout = n.Stdout
	cmd.Stderr = n.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = append(os.Environ(), environ(env)...)

	if err := cmd.Run(); err != nil {
		return &ExecutorError{Binary: bin, Err: err}
	}
	return nil
}

func environ(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
