// Package hooks runs the optional build.lua script at fixed lifecycle points.
// Each run starts a fresh Lua state, exposes the build context as the global
// ctx table plus an exec(cmdline) function, calls the lifecycle callbacks the
// script defines, and reads ctx back as the replacement context.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/buildctx"
)

// DefaultScript is the hook script looked up in the workspace root.
const DefaultScript = "build.lua"

// Phase is a named lifecycle callback.
type Phase string

const (
	BeforeDiscover Phase = "before_discover"
	BeforeGenerate Phase = "before_generate"
	BeforeBuild    Phase = "before_build"
	AfterBuild     Phase = "after_build"
)

// AllPhases is the callback order used when Run is given no phases.
var AllPhases = []Phase{BeforeDiscover, BeforeGenerate, BeforeBuild, AfterBuild}

const (
	ctxGlobal  = "ctx"
	execGlobal = "exec"
)

// ScriptError reports a script that failed to load or run, or a callback
// that raised.
type ScriptError struct {
	Script   string
	Callback Phase
	Err      error
}

func (e *ScriptError) Error() string {
	if e.Callback != "" {
		return fmt.Sprintf("hook %s in %s: %v", e.Callback, e.Script, e.Err)
	}
	return fmt.Sprintf("hook script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Engine runs one hook script.
type Engine struct {
	script string
	shell  Shell
	logger *zap.Logger
}

// NewEngine creates an engine for the script at path. shell is the exec
// capability handed to the script.
func NewEngine(path string, shell Shell, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{script: path, shell: shell, logger: logger}
}

// Exists reports whether the script file is present.
func (e *Engine) Exists() bool {
	info, err := os.Stat(e.script)
	return err == nil && !info.IsDir()
}

// Run executes the script against bctx. With no phases every lifecycle
// callback is attempted in AllPhases order. When the script does not exist
// bctx is returned unchanged.
func (e *Engine) Run(ctx context.Context, bctx *buildctx.Context, phases ...Phase) (*buildctx.Context, error) {
	if !e.Exists() {
		e.logger.Debug("no hook script", zap.String("script", e.script))
		return bctx, nil
	}
	if len(phases) == 0 {
		phases = AllPhases
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if ctx != nil {
		L.SetContext(ctx)
	}

	if err := openLibs(L); err != nil {
		return nil, &ScriptError{Script: e.script, Err: err}
	}

	value, err := encode(L, bctx)
	if err != nil {
		return nil, &ScriptError{Script: e.script, Err: fmt.Errorf("encode ctx: %w", err)}
	}
	L.SetGlobal(ctxGlobal, value)
	L.SetGlobal(execGlobal, L.NewFunction(e.exec))

	if err := L.DoFile(e.script); err != nil {
		return nil, &ScriptError{Script: e.script, Err: err}
	}

	for _, phase := range phases {
		fn := L.GetGlobal(string(phase))
		if fn.Type() != lua.LTFunction {
			continue
		}
		e.logger.Debug("running hook", zap.String("callback", string(phase)))
		err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, L.GetGlobal(ctxGlobal))
		if err != nil {
			return nil, &ScriptError{Script: e.script, Callback: phase, Err: err}
		}
	}

	result := L.GetGlobal(ctxGlobal)
	if result.Type() != lua.LTTable {
		return nil, &ScriptError{Script: e.script, Err: errors.New("global ctx is no longer a table")}
	}
	var out buildctx.Context
	if err := decode(result, &out); err != nil {
		return nil, &ScriptError{Script: e.script, Err: fmt.Errorf("decode ctx: %w", err)}
	}
	return &out, nil
}

// exec is injected as the global exec(cmdline) function.
func (e *Engine) exec(L *lua.LState) int {
	cmdline := L.CheckString(1)
	e.logger.Debug("hook exec", zap.String("cmd", cmdline))

	res := e.shell.Exec(cmdline)
	t := L.NewTable()
	t.RawSetString("code", lua.LNumber(res.Code))
	t.RawSetString("stdout", lua.LString(res.Stdout))
	t.RawSetString("stderr", lua.LString(res.Stderr))
	L.Push(t)
	return 1
}

// openLibs loads the libraries available to scripts. io and os are left out;
// exec is the only way a script reaches the host.
func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	return nil
}
