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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/checker"
	"github.com/jazzpetri/faultcheck/config"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/samples"
	"github.com/jazzpetri/faultcheck/traversal"
)

// errViolation is returned when a checked property does not hold.
var errViolation = errors.New("property violated")

// app holds the state shared by the commands.
type app struct {
	registry *samples.Registry
	cfg      config.Analysis
	actx     *observability.AnalysisContext
	out      io.Writer
}

func newRootCmd(registry *samples.Registry) *cobra.Command {
	a := &app{registry: registry}
	var (
		configPath string
		envFile    string
		logLevel   string
		workers    int
	)

	root := &cobra.Command{
		Use:           "faultcheck",
		Short:         "Fault-aware state space exploration and probabilistic model checking",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.LoadFile(configPath); err != nil {
					return err
				}
			}
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.CPUCount = workers
			}

			level, err := observability.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logger := observability.NewConsoleLogger(cmd.ErrOrStderr(), level)
			cfg.Validate(logger)

			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			a.actx = observability.NewAnalysisContextBuilder().
				WithContext(cmd.Context()).
				WithLogger(logger).
				WithMetrics(observability.NewInMemoryMetrics()).
				Build()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "file with FAULTCHECK_* variables")
	flags.StringVar(&logLevel, "log-level", "warn", "minimum log level")
	flags.IntVar(&workers, "workers", 0, "number of workers (default: all CPUs)")

	root.AddCommand(
		newSamplesCmd(a),
		newCheckCmd(a),
		newVerifyCmd(a),
		newInspectCmd(a),
		newSimulateCmd(a),
		newMDPCmd(a),
	)
	return root
}

// parseStateFormula parses a label, optionally negated with a leading '!'.
func parseStateFormula(s string) (formula.Formula, error) {
	label := strings.TrimPrefix(s, "!")
	if label == "" {
		return nil, fmt.Errorf("empty state formula %q", s)
	}
	f := formula.Atomic(label)
	if label != s {
		return formula.Negate(f), nil
	}
	return f, nil
}

// sample returns the registry entry called name.
func (a *app) sample(name string) (samples.Entry, error) {
	e, ok := a.registry.Get(name)
	if !ok {
		return samples.Entry{}, fmt.Errorf("unknown sample %q (known: %s)", name, strings.Join(a.registry.Names(), ", "))
	}
	return e, nil
}

// buildNested explores a sample with step graphs and converts the result.
// With early termination, states deciding every formula are not expanded.
func (a *app) buildNested(ctx context.Context, name string, formulas []formula.Formula) (*markov.NestedMDP, error) {
	labeling, err := formula.NewLabeling(formulas, a.cfg.AtomicLabels)
	if err != nil {
		return nil, err
	}
	opts := a.cfg.Traversal(true, a.actx)
	opts.Executed.Labeling = labeling
	if a.cfg.EarlyTermination {
		if opts.Terminal, err = checker.Terminal(labeling, formulas...); err != nil {
			return nil, err
		}
	}

	g, err := traversal.New(a.registry.Creator(name), opts).Run(ctx)
	if err != nil {
		return nil, err
	}
	return markov.FromStateGraph(g)
}

// writeDOT writes a Graphviz file named name.dot to the configured
// directory. It does nothing when no directory is configured.
func (a *app) writeDOT(name string, write func(io.Writer) error) error {
	if a.cfg.GraphvizDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cfg.GraphvizDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.cfg.GraphvizDir, name+".dot")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.actx.Logger.Info("graphviz file written", a.actx.Fields(map[string]interface{}{"path": path}))
	return nil
}
