/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gofold/InputParameters"
	"github.com/notargets/gofold/diagnostics"
	"github.com/notargets/gofold/logging"
	"github.com/notargets/gofold/readfiles"
	"github.com/notargets/gofold/simulation"
)

type RunOptions struct {
	MeshFile   string
	ParamsFile string
	LabelsFile string
	RecordFile string
	Profile    string // "", "cpu" or "mem"
	Steps      int    // Overrides the parameter file when positive
	Every      int    // Diagnostic report interval in steps
	Perf       bool   // Count the CPU instructions of the first step
}

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Grow and fold a tetrahedral mesh",
	Long: `
Reads a Netgen neutral mesh and a YAML parameter file, grows the cortical
layer and integrates the deformation for the requested number of steps.

gofold run -F brain.mesh -I params.yaml -n 5000 -e 100 --record runs.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := &RunOptions{
			MeshFile:   viper.GetString("run.gridFile"),
			ParamsFile: viper.GetString("run.inputParametersFile"),
			LabelsFile: viper.GetString("run.labels"),
			RecordFile: viper.GetString("run.record"),
			Profile:    viper.GetString("run.profile"),
			Steps:      viper.GetInt("run.steps"),
			Every:      viper.GetInt("run.every"),
			Perf:       viper.GetBool("run.perf"),
		}
		return RunSimulation(context.Background(), opts, logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("gridFile", "F", "", "Netgen neutral (.mesh) file to read")
	RunCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for the physical parameters, defaults are used when empty")
	RunCmd.Flags().StringP("labels", "L", "", "file of region labels, one per tetrahedron, for regional growth")
	RunCmd.Flags().String("record", "", "SQLite database to append the step diagnostics to")
	RunCmd.Flags().String("profile", "", "write a cpu or mem profile to the working directory")
	RunCmd.Flags().IntP("steps", "n", 0, "number of steps, overrides Steps in the parameter file")
	RunCmd.Flags().IntP("every", "e", 100, "number of steps between diagnostic reports")
	RunCmd.Flags().Bool("perf", false, "count CPU instructions of the first step with perf events")
	for _, name := range []string{"gridFile", "inputParametersFile", "labels", "record", "profile", "steps", "every", "perf"} {
		if err := viper.BindPFlag("run."+name, RunCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// RunSimulation loads the inputs named in opts and runs the simulation,
// writing a summary to out.
func RunSimulation(ctx context.Context, opts *RunOptions, logger *slog.Logger, out io.Writer) (err error) {
	var (
		ip  *InputParameters.SimulationParameters
		sim *simulation.Simulation
		rec *diagnostics.Recorder
		id  int64
	)
	logger = logging.OrDiscard(logger)
	if len(opts.MeshFile) == 0 {
		return fmt.Errorf("must supply a mesh file (-F, --gridFile) in Netgen neutral format")
	}
	m, err := readfiles.ReadNetgenFile(opts.MeshFile)
	if err != nil {
		return err
	}
	if len(opts.ParamsFile) == 0 {
		ip = InputParameters.Defaults()
	} else if ip, err = InputParameters.ReadFile(opts.ParamsFile); err != nil {
		return err
	}
	if opts.Steps > 0 {
		ip.Steps = opts.Steps
	}
	if len(opts.LabelsFile) != 0 {
		if m.Labels, err = readfiles.ReadLabelsFile(opts.LabelsFile); err != nil {
			return err
		}
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		ip.Fprint(out)
	}
	p, err := ip.Simulation()
	if err != nil {
		return err
	}
	if sim, err = simulation.New(m, p, logger); err != nil {
		return err
	}

	if len(opts.RecordFile) != 0 {
		if rec, err = diagnostics.Open(ctx, opts.RecordFile); err != nil {
			return err
		}
		defer rec.Close()
		if id, err = rec.BeginRun(ctx, diagnostics.Run{
			Title:    ip.Title,
			Nodes:    m.NodeCount(),
			Elements: m.ElementCount(),
			Dt:       sim.Dt,
			Mode:     p.Mode.String(),
		}); err != nil {
			return err
		}
	}

	switch opts.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile kind %q, expected cpu or mem", opts.Profile)
	}

	report := func(d simulation.Diagnostics) error {
		logger.Info("step", "step", d.Step, "time", d.Time, "volume", d.Volume, "energy", d.Energy,
			"minEdge", d.MinEdge, "maxEdge", d.MaxEdge, "degenerate", d.Degenerate, "contacts", d.Contacts)
		if rec != nil {
			return rec.Record(ctx, id, d)
		}
		return nil
	}

	var (
		last  simulation.Diagnostics
		steps = ip.Steps
	)
	if opts.Perf && steps > 0 {
		var (
			count   uint64
			stepErr error
		)
		count, err = countInstructions(func() error {
			last, stepErr = sim.Step()
			return stepErr
		})
		switch {
		case stepErr != nil:
			return stepErr
		case err != nil:
			logger.Warn("perf events unavailable", "error", err)
		default:
			logger.Info("first step", "instructions", count)
		}
		if steps -= sim.StepCount; sim.StepCount > 0 && opts.Every > 0 && (steps == 0 || sim.StepCount%opts.Every == 0) {
			if err = report(last); err != nil {
				return err
			}
		}
	}
	if steps > 0 {
		if last, err = sim.Run(steps, opts.Every, report); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "%d steps, t = %8.5f, volume = %8.5f, energy = %8.5g, degenerate elements = %d\n",
		sim.StepCount, sim.Time, last.Volume, last.Energy, last.Degenerate)
	return nil
}
