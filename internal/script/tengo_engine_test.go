package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTengoEngine_Execute(t *testing.T) {
	engine := NewTengoEngine()

	compiled, err := engine.Compile(&Script{
		Name:    "multiply",
		Content: `result := base_value * multiplier`,
		Inputs:  []string{"base_value", "multiplier"},
	})
	require.NoError(t, err)

	output, err := engine.Execute(context.Background(), compiled, map[string]interface{}{
		"base_value": 10,
		"multiplier": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), output.Result)
	assert.True(t, output.Metrics.Success)

	// The compiled program is reusable with different inputs.
	output, err = engine.Execute(context.Background(), compiled, map[string]interface{}{
		"base_value": 2,
		"multiplier": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), output.Result)
}

func TestTengoEngine_CompileError(t *testing.T) {
	engine := NewTengoEngine()

	_, err := engine.Compile(&Script{Name: "broken", Content: `result := (`})
	require.Error(t, err)

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, ErrorTypeCompilation, scriptErr.Type)
	assert.Equal(t, "broken", scriptErr.ScriptName)
}

func TestTengoEngine_UnknownInput(t *testing.T) {
	engine := NewTengoEngine()
	compiled, err := engine.Compile(&Script{Name: "noop", Content: `result := 1`})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), compiled, map[string]interface{}{"nope": 1})
	require.Error(t, err)
}

func TestTengoEngine_Timeout(t *testing.T) {
	engine := NewTengoEngine()
	engine.SetSecurityLimits(SecurityLimits{
		MaxExecutionTime: 20 * time.Millisecond,
		MaxAllocs:        -1,
	})

	compiled, err := engine.Compile(&Script{
		Name:    "spin",
		Content: `for true {}`,
	})
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), compiled, nil)
	require.Error(t, err)

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, ErrorTypeTimeout, scriptErr.Type)
}

func TestTengoEngine_DisallowedImport(t *testing.T) {
	engine := NewTengoEngine()
	_, err := engine.Compile(&Script{Name: "os", Content: `os := import("os")`})
	require.Error(t, err)
}
