package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// TengoEngine compiles and runs tengo scripts.
type TengoEngine struct {
	securityLimits SecurityLimits
}

// CompiledScript is safe for concurrent Execute calls; each run works on a
// clone of the compiled program.
type CompiledScript struct {
	Script   *Script
	compiled *tengo.Compiled
}

// NewTengoEngine creates a new Tengo engine with default security limits
func NewTengoEngine() *TengoEngine {
	return &TengoEngine{
		securityLimits: GetDefaultSecurityLimits(),
	}
}

// SetSecurityLimits configures resource and security constraints
func (e *TengoEngine) SetSecurityLimits(limits SecurityLimits) {
	e.securityLimits = limits
}

// Compile prepares a script for execution. Every declared input starts out
// undefined.
func (e *TengoEngine) Compile(script *Script) (*CompiledScript, error) {
	startTime := time.Now()

	ts := tengo.NewScript([]byte(script.Content))
	ts.SetImports(e.buildModuleMap())
	ts.SetMaxAllocs(e.securityLimits.MaxAllocs)
	for _, name := range script.Inputs {
		if err := ts.Add(name, nil); err != nil {
			return nil, NewScriptError(ErrorTypeCompilation, script.Name, "declare input "+name, err)
		}
	}
	if err := ts.Add("log", logFunction(script.Name)); err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, script.Name, "declare log", err)
	}

	compiled, err := ts.Compile()
	if err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, script.Name, "failed to compile", err)
	}

	slog.Debug("Tengo script compiled",
		"script", script.Name,
		"compilation_time", time.Since(startTime),
	)
	return &CompiledScript{Script: script, compiled: compiled}, nil
}

// Execute runs a compiled script with the given inputs and returns the value
// of its "result" variable.
func (e *TengoEngine) Execute(ctx context.Context, cs *CompiledScript, inputs map[string]interface{}) (*ScriptOutput, error) {
	startTime := time.Now()
	name := cs.Script.Name

	run := cs.compiled.Clone()
	for key, value := range inputs {
		if err := run.Set(key, value); err != nil {
			return nil, NewScriptError(ErrorTypeExecution, name, "failed to set input "+key, err)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.securityLimits.MaxExecutionTime)
	defer cancel()

	if err := run.RunContext(execCtx); err != nil {
		if execCtx.Err() != nil {
			return nil, NewScriptError(ErrorTypeTimeout, name, "script execution timed out", err)
		}
		return nil, NewScriptError(ErrorTypeExecution, name, "script execution failed", err)
	}

	var result interface{}
	if v := run.Get("result"); v != nil {
		result = v.Value()
	}

	return &ScriptOutput{
		Result: result,
		Metrics: ExecutionMetrics{
			ExecutionTime: time.Since(startTime),
			Success:       true,
		},
	}, nil
}

func (e *TengoEngine) buildModuleMap() *tengo.ModuleMap {
	modules := tengo.NewModuleMap()
	for _, pkg := range e.securityLimits.AllowedPackages {
		if module, ok := stdlib.BuiltinModules[pkg]; ok {
			modules.AddBuiltinModule(pkg, module)
		}
	}
	return modules
}

func logFunction(scriptName string) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			msg, ok := tengo.ToString(args[0])
			if !ok {
				msg = fmt.Sprint(args[0])
			}
			slog.Debug("Script log", "message", msg, "script", scriptName)
			return tengo.UndefinedValue, nil
		},
	}
}
