package hooks

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// ShellResult is what the injected exec function returns to scripts as
// {code, stdout, stderr}. A non-zero Code is a normal outcome.
type ShellResult struct {
	Code   int
	Stdout string
	Stderr string
}

// Shell is the only capability exposed to hook scripts.
type Shell interface {
	Exec(cmdline string) ShellResult
}

// SystemShell runs command lines with the host shell in Dir.
type SystemShell struct {
	Dir string
}

// Exec runs cmdline synchronously with sh -lc (cmd /C on Windows). It never
// fails: spawn errors are reported as code -1 with the error on stderr.
func (s SystemShell) Exec(cmdline string) ShellResult {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", cmdline)
	} else {
		cmd = exec.Command("sh", "-lc", cmdline)
	}
	cmd.Dir = s.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ShellResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Code = exitErr.ExitCode()
		return res
	}
	res.Code = -1
	res.Stderr = fmt.Sprintf("spawn error: %v", err)
	return res
}
