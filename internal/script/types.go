package script

import "time"

// ErrorType categorizes script failures.
type ErrorType string

const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeResult      ErrorType = "result"
)

// Script is a named tengo source together with the variables it reads.
type Script struct {
	Name    string
	Content string
	// Inputs are declared at compile time and set on every run.
	Inputs []string
}

// ScriptOutput contains the results of one execution.
type ScriptOutput struct {
	Result  interface{}
	Metrics ExecutionMetrics
}

// ExecutionMetrics tracks execution data.
type ExecutionMetrics struct {
	ExecutionTime time.Duration
	Success       bool
}

// SecurityLimits bounds a single execution.
type SecurityLimits struct {
	MaxExecutionTime time.Duration
	// MaxAllocs caps the number of tengo object allocations; -1 disables it.
	MaxAllocs       int64
	AllowedPackages []string
}

// ScriptError represents script-related errors with context
type ScriptError struct {
	Type       ErrorType
	ScriptName string
	Message    string
	Cause      error
}

func (e *ScriptError) Error() string {
	if e.Cause != nil {
		return e.ScriptName + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.ScriptName + ": " + e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// NewScriptError creates a new ScriptError with the given parameters
func NewScriptError(errorType ErrorType, scriptName, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:       errorType,
		ScriptName: scriptName,
		Message:    message,
		Cause:      cause,
	}
}
