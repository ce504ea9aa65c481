// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/executed"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, map[string]interface{})  {}
func (l *recordingLogger) Error(string, map[string]interface{}) {}
func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) {
	l.warnings = append(l.warnings, msg)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// TestDefault_IsValid produces no warnings.
func TestDefault_IsValid(t *testing.T) {
	a := Default()
	logger := &recordingLogger{}
	a.Validate(logger)

	assert.Empty(t, logger.warnings)
	assert.Equal(t, 1<<20, a.StackCapacity)
	assert.Equal(t, 1<<14, a.SuccessorCapacity)
	assert.Equal(t, 1e-10, a.ConvergenceTolerance)
	assert.Equal(t, 1_000_000, a.MaxIterations)
	assert.Equal(t, executed.AtStepBeginning, a.Moment())
}

func TestValidate_FixesValues(t *testing.T) {
	a := Analysis{
		StackCapacity:         -1,
		ModelCapacity:         "huge",
		CPUCount:              runtime.NumCPU() + 8,
		FaultActivationMoment: "whenever",
		ConvergenceTolerance:  -1,
	}
	logger := &recordingLogger{}
	a.Validate(logger)

	assert.Equal(t, DefaultStackCapacity, a.StackCapacity)
	assert.Equal(t, DefaultSuccessorCapacity, a.SuccessorCapacity)
	assert.Equal(t, Normal, a.ModelCapacity)
	assert.Equal(t, runtime.NumCPU(), a.CPUCount)
	assert.Equal(t, "AtStepBeginning", a.FaultActivationMoment)
	assert.Equal(t, DefaultConvergenceTolerance, a.ConvergenceTolerance)
	assert.Equal(t, DefaultMaxIterations, a.MaxIterations)
	assert.Len(t, logger.warnings, 7)
	assert.Contains(t, logger.warnings, "Invalid CPUCount, using default")

	a.CPUCount = 0
	a.Validate(nil)
	assert.Equal(t, 1, a.CPUCount)
}

func TestModelCapacity_States(t *testing.T) {
	assert.Less(t, Tiny.States(), Small.States())
	assert.Less(t, Small.States(), Normal.States())
	assert.Less(t, Normal.States(), Large.States())
	assert.Zero(t, ModelCapacity("huge").States())
}

// TestLoadFile keeps defaults for keys the file omits.
func TestLoadFile(t *testing.T) {
	path := writeFile(t, "faultcheck.yaml", `
model_capacity: small
cpu_count: 1
fault_activation_moment: OnFirstMethodWithUndo
convergence_tolerance: 1e-6
graphviz_dir: out
`)
	a, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, Small, a.ModelCapacity)
	assert.Equal(t, 1, a.CPUCount)
	assert.Equal(t, executed.OnFirstMethodWithUndo, a.Moment())
	assert.Equal(t, 1e-6, a.ConvergenceTolerance)
	assert.Equal(t, "out", a.GraphvizDir)
	assert.Equal(t, DefaultMaxIterations, a.MaxIterations)
	assert.True(t, a.GenerateCounterExample)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "bad.yaml", "cpu_cores: 2\n"))
	assert.Error(t, err)

	a, err := LoadFile(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), a)
}

func TestApplyEnv(t *testing.T) {
	a := Default()
	err := a.apply(envLookup(map[string]string{
		"FAULTCHECK_MODEL_CAPACITY":           "LARGE",
		"FAULTCHECK_CPU_COUNT":                "2",
		"FAULTCHECK_COMPACT_STORAGE":          "true",
		"FAULTCHECK_GENERATE_COUNTER_EXAMPLE": "0",
		"FAULTCHECK_CONVERGENCE_TOLERANCE":    "1e-8",
		"FAULTCHECK_GRAPHVIZ_DIR":             "/tmp/dot",
	}))
	require.NoError(t, err)

	assert.Equal(t, Large, a.ModelCapacity)
	assert.Equal(t, 2, a.CPUCount)
	assert.True(t, a.CompactStorage)
	assert.False(t, a.GenerateCounterExample)
	assert.Equal(t, 1e-8, a.ConvergenceTolerance)
	assert.Equal(t, "/tmp/dot", a.GraphvizDir)
}

// TestApplyEnv_Errors reports every malformed variable.
func TestApplyEnv_Errors(t *testing.T) {
	a := Default()
	err := a.apply(envLookup(map[string]string{
		"FAULTCHECK_CPU_COUNT":         "many",
		"FAULTCHECK_EARLY_TERMINATION": "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAULTCHECK_CPU_COUNT")
	assert.Contains(t, err.Error(), "FAULTCHECK_EARLY_TERMINATION")
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "FAULTCHECK_MAX_ITERATIONS=42\n")
	t.Setenv("FAULTCHECK_MAX_ITERATIONS", "")
	os.Unsetenv("FAULTCHECK_MAX_ITERATIONS")

	require.NoError(t, LoadEnvFile(path))
	a := Default()
	require.NoError(t, a.ApplyEnv())
	assert.Equal(t, 42, a.MaxIterations)

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
}

func TestTraversalOptions(t *testing.T) {
	a := Default()
	a.CPUCount = 3
	a.ModelCapacity = Tiny
	a.CompactStorage = true
	a.FaultActivationMoment = "OnFirstMethodWithoutUndo"

	opts := a.Traversal(false, nil)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, Tiny.States(), opts.StateCapacity)
	assert.False(t, opts.Labeled)
	assert.Equal(t, executed.OnFirstMethodWithoutUndo, opts.Executed.Moment)

	assert.True(t, a.Traversal(true, nil).Labeled)

	c := a.Checker(nil)
	assert.Equal(t, a.ConvergenceTolerance, c.Tolerance)
	assert.Equal(t, a.MaxIterations, c.MaxIterations)
}
