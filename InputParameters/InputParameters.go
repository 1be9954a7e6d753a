package InputParameters

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gofold/growth"
	"github.com/notargets/gofold/simulation"
)

// Parameters obtained from the YAML input file
type SimulationParameters struct {
	Title          string                    `json:"Title"`
	BulkModulus    float64                   `json:"BulkModulus"`
	Penalty        float64                   `json:"Penalty"` // Stretch penalty of the degenerate branch
	Eps            float64                   `json:"Eps"`
	MuWhite        float64                   `json:"MuWhite"`
	MuGray         float64                   `json:"MuGray"`
	Thickness      float64                   `json:"Thickness"`
	Density        float64                   `json:"Density"`
	Damping        float64                   `json:"Damping"`
	GrowthRate     float64                   `json:"GrowthRate"`
	GrowthMode     string                    `json:"GrowthMode"`
	TimeStep       float64                   `json:"TimeStep"` // Zero selects the stable step from the mean edge length
	Steps          int                       `json:"Steps"`
	Normalize      bool                      `json:"Normalize"`
	MidPlane       MidPlaneParameters        `json:"MidPlane"`
	Regions        []growth.RegionParameters `json:"Regions"` // Indexed by element region label
	ParallelDegree int                       `json:"ParallelDegree"`
}

type MidPlaneParameters struct {
	Enabled bool    `json:"Enabled"`
	Y       float64 `json:"Y"`
}

// Defaults returns the parameters of the reference folding run
func Defaults() *SimulationParameters {
	return &SimulationParameters{
		Title:       "Cortical folding",
		BulkModulus: 5.,
		Penalty:     0.,
		Eps:         0.1,
		MuWhite:     1.167,
		MuGray:      1.,
		Thickness:   0.042,
		Density:     0.01,
		Damping:     0.5,
		GrowthRate:  1.829,
		GrowthMode:  growth.Tangential.String(),
		Steps:       1000,
		Normalize:   true,
		MidPlane:    MidPlaneParameters{Enabled: true, Y: -0.004},
	}
}

// Parse overlays the YAML document in data on the current values
func (ip *SimulationParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// ReadFile parses the YAML parameter file at path over the defaults
func ReadFile(path string) (ip *SimulationParameters, err error) {
	var (
		data []byte
	)
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = Defaults()
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return
}

func (ip *SimulationParameters) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"BulkModulus", ip.BulkModulus},
		{"Eps", ip.Eps},
		{"MuWhite", ip.MuWhite},
		{"MuGray", ip.MuGray},
		{"Thickness", ip.Thickness},
		{"Density", ip.Density},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, have %v", p.name, p.value)
		}
	}
	if ip.Damping < 0 || ip.Penalty < 0 || ip.TimeStep < 0 {
		return fmt.Errorf("damping, penalty and time step must not be negative, have %v, %v, %v",
			ip.Damping, ip.Penalty, ip.TimeStep)
	}
	if ip.Steps < 0 {
		return fmt.Errorf("negative step count %d", ip.Steps)
	}
	mode, err := growth.NewMode(ip.GrowthMode)
	if err != nil {
		return err
	}
	if mode == growth.Regional && len(ip.Regions) == 0 {
		return fmt.Errorf("growth mode %s needs at least one entry in Regions", mode)
	}
	return nil
}

// Simulation converts the file parameters into simulation parameters
func (ip *SimulationParameters) Simulation() (p simulation.Parameters, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	mode, _ := growth.NewMode(ip.GrowthMode)
	p = simulation.Parameters{
		Bulk:           ip.BulkModulus,
		Penalty:        ip.Penalty,
		Eps:            ip.Eps,
		MuWhite:        ip.MuWhite,
		MuGray:         ip.MuGray,
		Thickness:      ip.Thickness,
		Density:        ip.Density,
		Damping:        ip.Damping,
		Growth:         ip.GrowthRate,
		Mode:           mode,
		Regions:        ip.Regions,
		Dt:             ip.TimeStep,
		Contact:        ip.MidPlane.Enabled,
		MidPlaneY:      ip.MidPlane.Y,
		Normalize:      ip.Normalize,
		ParallelDegree: ip.ParallelDegree,
	}
	return
}

func (ip *SimulationParameters) Print() {
	ip.Fprint(os.Stdout)
}

func (ip *SimulationParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "%8.5f\t\t= BulkModulus\n", ip.BulkModulus)
	fmt.Fprintf(w, "%8.5f\t\t= Penalty\n", ip.Penalty)
	fmt.Fprintf(w, "%8.5f\t\t= Eps\n", ip.Eps)
	fmt.Fprintf(w, "%8.5f\t\t= MuWhite\n", ip.MuWhite)
	fmt.Fprintf(w, "%8.5f\t\t= MuGray\n", ip.MuGray)
	fmt.Fprintf(w, "%8.5f\t\t= Thickness\n", ip.Thickness)
	fmt.Fprintf(w, "%8.5f\t\t= Density\n", ip.Density)
	fmt.Fprintf(w, "%8.5f\t\t= Damping\n", ip.Damping)
	fmt.Fprintf(w, "%8.5f\t\t= GrowthRate\n", ip.GrowthRate)
	fmt.Fprintf(w, "[%s]\t\t= GrowthMode\n", ip.GrowthMode)
	if ip.TimeStep == 0 {
		fmt.Fprintf(w, "[stable]\t\t= TimeStep\n")
	} else {
		fmt.Fprintf(w, "%8.5g\t\t= TimeStep\n", ip.TimeStep)
	}
	fmt.Fprintf(w, "[%d]\t\t\t= Steps\n", ip.Steps)
	fmt.Fprintf(w, "[%v]\t\t\t= Normalize\n", ip.Normalize)
	fmt.Fprintf(w, "[%v] %8.5f\t= MidPlane\n", ip.MidPlane.Enabled, ip.MidPlane.Y)
	for i, r := range ip.Regions {
		fmt.Fprintf(w, "Regions[%d] = %+v\n", i, r)
	}
}
