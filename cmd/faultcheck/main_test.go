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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/counterexample"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/probability"
	"github.com/jazzpetri/faultcheck/samples"
	"github.com/jazzpetri/faultcheck/statevector"
)

const schedulerSplitJSON = `{
  "labels": {"goal": [3]},
  "initial": {"target": 0},
  "states": [
    {"probabilistic": [
      {"p": 0.4, "target": 1},
      {"p": 0.6, "nondeterministic": [{"target": 2}, {"target": 3}]}
    ]},
    {"target": 1},
    {"target": 2},
    {"target": 3}
  ]
}`

// runCmd executes the command line and returns its output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCmdWith(t, samples.Default, args...)
}

func runCmdWith(t *testing.T, registry *samples.Registry, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(registry)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--workers", "1", "--env-file", filepath.Join(t.TempDir(), ".env")}, args...))
	err := root.Execute()
	return out.String(), err
}

// TestSamplesCmd lists the samples with their invariants.
func TestSamplesCmd(t *testing.T) {
	out, err := runCmd(t, "samples")
	require.NoError(t, err)
	assert.Contains(t, out, "dice\t")
	assert.Contains(t, out, "invariant !(ruptured)")
}

// TestCheckCmd prints the die probabilities.
func TestCheckCmd(t *testing.T) {
	out, err := runCmd(t, "check", "dice")
	require.NoError(t, err)
	assert.Contains(t, out, "DTMC with")
	assert.Contains(t, out, "0.166667")

	out, err = runCmd(t, "check", "uniform-initial", "--mdp", "--label", "state2")
	require.NoError(t, err)
	assert.Contains(t, out, "MDP with")
	assert.Regexp(t, `F state2\s+0\.000000\s+1\.000000`, out)

	_, err = runCmd(t, "check", "nonexistent")
	assert.ErrorContains(t, err, "unknown sample")

	_, err = runCmd(t, "check", "dice", "--mdp", "--conversion", "sideways")
	assert.ErrorContains(t, err, "unknown MDP conversion")
}

// TestCheckCmd_Graphviz writes DOT files when a directory is configured.
func TestCheckCmd_Graphviz(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faultcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graphviz_dir: "+dir+"\n"), 0o600))

	_, err := runCmd(t, "--config", path, "check", "three-way")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "three-way-nested.dot"))
	assert.FileExists(t, filepath.Join(dir, "three-way-dtmc.dot"))
}

// TestVerifyAndInspectCmd writes a counter-example for the tank and
// replays it.
func TestVerifyAndInspectCmd(t *testing.T) {
	dir := t.TempDir()
	out, err := runCmd(t, "verify", "tank", "--out", dir)
	assert.ErrorIs(t, err, errViolation)
	assert.Contains(t, out, "invariant: VIOLATED")

	file := filepath.Join(dir, "tank-invariant"+counterexample.FileExtension)
	require.FileExists(t, file)

	out, err = runCmd(t, "inspect", file)
	require.NoError(t, err)
	assert.Contains(t, out, "fault SensorStuck")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[len(lines)-1], "ruptured=1")
}

// makeSafeRegistry registers a tank whose faults never occur.
func makeSafeRegistry(t *testing.T) *samples.Registry {
	t.Helper()
	r := samples.NewRegistry()
	require.NoError(t, r.Register(samples.Entry{
		Name: "safe-tank",
		Factory: func() (*samples.Model, error) {
			m, err := samples.NewTank()
			if err != nil {
				return nil, err
			}
			for _, f := range m.Faults() {
				f.SetActivation(faults.Suppressed)
			}
			return m, nil
		},
	}))
	return r
}

func TestVerifyCmd_Satisfied(t *testing.T) {
	out, err := runCmdWith(t, makeSafeRegistry(t), "verify", "safe-tank", "--invariant", "!ruptured", "--deadlock")
	require.NoError(t, err)
	assert.Contains(t, out, "invariant: satisfied")
	assert.Contains(t, out, "deadlock_freedom: satisfied")

	_, err = runCmd(t, "verify", "dice")
	assert.ErrorContains(t, err, "no invariant")

	_, err = runCmd(t, "verify", "dice", "--invariant", "!final7")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errViolation)
}

func TestSimulateCmd(t *testing.T) {
	out, err := runCmd(t, "simulate", "dice", "final6", "--runs", "200", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "of 200 runs, seed 7")

	_, err = runCmd(t, "simulate", "dice", "!")
	assert.Error(t, err)
}

func TestMDPCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "split.json")
	require.NoError(t, os.WriteFile(path, []byte(schedulerSplitJSON), 0o600))

	out, err := runCmd(t, "mdp", path, "goal")
	require.NoError(t, err)
	assert.Regexp(t, `F goal\s+0\.000000\s+0\.600000`, out)

	out, err = runCmd(t, "mdp", path, "goal", "--bound", "1", "--conversion", "flattening")
	require.NoError(t, err)
	assert.Regexp(t, `F<=1 goal\s+0\.000000\s+0\.600000`, out)
}

// makeLadderRegistry registers "ladder", a model that climbs from 0 to 4
// with probability 0.5 per step and falls off otherwise.
func makeLadderRegistry(t *testing.T) *samples.Registry {
	t.Helper()
	r := samples.NewRegistry()
	require.NoError(t, r.Register(samples.Entry{
		Name: "ladder",
		Factory: func() (*samples.Model, error) {
			m, err := samples.NewModel("ladder", statevector.Int("n", 0, 4), statevector.Bool("fell"))
			if err != nil {
				return nil, err
			}
			n, fell := m.Index("n"), m.Index("fell")
			half := probability.MustNew(0.5)
			m.Step = func() error {
				v := m.Vector()
				if v.Bool(fell) || v.Int(n) == 4 {
					return nil
				}
				if choice.ChooseWithProbability(m.Choice(), choice.NewOption(half, true), choice.NewOption(half, false)) {
					v.SetInt(n, v.Int(n)+1)
				} else {
					v.SetBool(fell, true)
				}
				return nil
			}
			m.AddProposition("two", func() bool { return m.Vector().Int(n) >= 2 })
			return m, nil
		},
	}))
	return r
}

// TestCheckCmd_EarlyTermination reports the same probability with and
// without expanding the states that decide the query.
func TestCheckCmd_EarlyTermination(t *testing.T) {
	r := makeLadderRegistry(t)

	early, err := runCmdWith(t, r, "check", "ladder", "--label", "two")
	require.NoError(t, err)
	assert.Contains(t, early, "ladder: DTMC with 5 states")
	assert.Regexp(t, `F two\s+0\.250000`, early)

	t.Setenv("FAULTCHECK_EARLY_TERMINATION", "false")
	full, err := runCmdWith(t, r, "check", "ladder", "--label", "two")
	require.NoError(t, err)
	assert.Contains(t, full, "ladder: DTMC with 9 states")
	assert.Regexp(t, `F two\s+0\.250000`, full)
}

// TestCheckCmd_BoundedNewStates counts the steps of the original states
// only.
func TestCheckCmd_BoundedNewStates(t *testing.T) {
	for _, conversion := range []string{"new-states", "flattening"} {
		out, err := runCmd(t, "check", "scheduler-split", "--mdp", "--conversion", conversion, "--label", "y2", "--bound", "1")
		require.NoError(t, err)
		assert.Regexp(t, `F<=1 y2\s+0\.000000\s+0\.600000`, out, conversion)
	}
}
