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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gofold/diagnostics"
	"github.com/notargets/gofold/geometry"
	"github.com/notargets/gofold/readfiles"
	"github.com/notargets/gofold/simulation"
)

// InspectCmd represents the inspect command
var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print mesh statistics and recorded runs",
	Long: `
Prints the size, surface and edge statistics of a Netgen mesh along with the
stable time step for the given density and bulk modulus. With --record, lists
the runs stored in a diagnostics database.

gofold inspect -F brain.mesh
gofold inspect --record runs.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			out    = cmd.OutOrStdout()
			ctx    = context.Background()
			mesh   = viper.GetString("inspect.gridFile")
			record = viper.GetString("inspect.record")
		)
		if len(mesh) == 0 && len(record) == 0 {
			return fmt.Errorf("nothing to inspect, supply a mesh file (-F) and/or a diagnostics database (--record)")
		}
		if len(mesh) != 0 {
			if err := InspectMesh(mesh, viper.GetFloat64("inspect.density"), viper.GetFloat64("inspect.bulk"), out); err != nil {
				return err
			}
		}
		if len(record) != 0 {
			return ListRuns(ctx, record, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(InspectCmd)
	InspectCmd.Flags().StringP("gridFile", "F", "", "Netgen neutral (.mesh) file to read")
	InspectCmd.Flags().String("record", "", "SQLite diagnostics database to list")
	InspectCmd.Flags().Float64("density", 0.01, "density used for the stable time step")
	InspectCmd.Flags().Float64("bulk", 5., "bulk modulus used for the stable time step")
	for _, name := range []string{"gridFile", "record", "density", "bulk"} {
		if err := viper.BindPFlag("inspect."+name, InspectCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// InspectMesh prints the statistics of the undeformed mesh in path
func InspectMesh(path string, density, bulk float64, out io.Writer) (err error) {
	var (
		m *geometry.Mesh
	)
	if m, err = readfiles.ReadNetgenFile(path); err != nil {
		return
	}
	var (
		sm = geometry.BuildSurfaceMap(m.Faces, m.NodeCount())
		es = geometry.EdgeLengthStats(m.Undeformed, m.Faces)
	)
	fmt.Fprintf(out, "Mesh: %s\n", path)
	fmt.Fprintf(out, "%d\t\t= Nodes\n", m.NodeCount())
	fmt.Fprintf(out, "%d\t\t= Elements\n", m.ElementCount())
	fmt.Fprintf(out, "%d\t\t= Faces\n", m.FaceCount())
	fmt.Fprintf(out, "%d\t\t= Surface nodes\n", sm.Len())
	fmt.Fprintf(out, "%8.5g\t= Volume\n", geometry.MeshVolume(m.Undeformed, m.Tets))
	fmt.Fprintf(out, "%8.5g\t= Min edge\n", es.Min)
	fmt.Fprintf(out, "%8.5g\t= Max edge\n", es.Max)
	fmt.Fprintf(out, "%8.5g\t= Mean edge\n", es.Mean)
	if density > 0 && bulk > 0 {
		fmt.Fprintf(out, "%8.5g\t= Stable time step\n", simulation.StableTimeStep(es.Mean, density, bulk))
	}
	return
}

// ListRuns prints every run in the diagnostics database at path with its
// last recorded step.
func ListRuns(ctx context.Context, path string, out io.Writer) (err error) {
	var (
		rec  *diagnostics.Recorder
		runs []diagnostics.Run
	)
	if rec, err = diagnostics.Open(ctx, path); err != nil {
		return
	}
	defer rec.Close()
	if runs, err = rec.Runs(ctx); err != nil {
		return
	}
	for _, r := range runs {
		var steps []simulation.Diagnostics
		if steps, err = rec.Steps(ctx, r.ID); err != nil {
			return
		}
		fmt.Fprintf(out, "run %d \"%s\" %s: %d nodes, %d elements, mode %s, dt %8.5g, %d records",
			r.ID, r.Title, r.Started.Format("2006-01-02 15:04:05"), r.Nodes, r.Elements, r.Mode, r.Dt, len(steps))
		if len(steps) != 0 {
			last := steps[len(steps)-1]
			fmt.Fprintf(out, ", last step %d volume %8.5g", last.Step, last.Volume)
		}
		fmt.Fprintln(out)
	}
	return
}
