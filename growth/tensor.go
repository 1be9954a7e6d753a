package growth

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/utils"
)

// Mode selects how the growth tensor of an element is built
type Mode uint8

const (
	Tangential  Mode = iota // I + (I - N⊗N)*gm*rate, in-plane growth of the cortex
	Homogeneous             // (1 + relative*t)*I everywhere
	Constant                // relative*I everywhere
	Cortical                // (1 + relative*t*gm)*I, isotropic growth of the cortex only
	Regional                // Tangential, with a per-region Gompertz rate
)

var modeNames = [...]string{"Tangential", "Homogeneous", "Constant", "Cortical", "Regional"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// NewMode parses a growth mode name, case insensitive
func NewMode(label string) (m Mode, err error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(label), name) {
			return Mode(i), nil
		}
	}
	err = fmt.Errorf("unknown growth mode %q, expected one of %v", label, modeNames)
	return
}

// TangentialTensor returns I + (I - N⊗N)*gm*rate for a unit normal N
func TangentialTensor(N r3.Vec, gm, rate float64) (G *mat.Dense) {
	var (
		n = []float64{N.X, N.Y, N.Z}
		s = gm * rate
	)
	G = mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var delta float64
			if i == j {
				delta = 1
			}
			G.Set(i, j, delta+(delta-n[i]*n[j])*s)
		}
	}
	return
}

// TangentialTensors builds the tangential growth tensor of every element
// from its normal, gray matter fraction and growth rate.
func TangentialTensors(G []*mat.Dense, Nt []r3.Vec, gm, rates []float64, parallelDegree int) []*mat.Dense {
	if G == nil {
		G = make([]*mat.Dense, len(Nt))
	}
	utils.ParallelFor(parallelDegree, len(Nt), func(kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			G[k] = TangentialTensor(Nt[k], gm[k], rates[k])
		}
	})
	return G
}

// IsotropicTensor returns s*I
func IsotropicTensor(s float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{s, 0, 0, 0, s, 0, 0, 0, s})
}

// HomogeneousTensor is the uniform growth (1 + relative*t)*I
func HomogeneousTensor(relative, t float64) *mat.Dense {
	return IsotropicTensor(1. + relative*t)
}

// ConstantTensor is the fixed growth relative*I
func ConstantTensor(relative float64) *mat.Dense {
	return IsotropicTensor(relative)
}

// CorticalTensor is the isotropic growth (1 + relative*t*gm)*I of the cortex
func CorticalTensor(gm, relative, t float64) *mat.Dense {
	return IsotropicTensor(1. + relative*t*gm)
}

// UniformRates returns a rate slice of length ne filled with rate
func UniformRates(ne int, rate float64) (rates []float64) {
	rates = make([]float64, ne)
	for k := range rates {
		rates[k] = rate
	}
	return
}

// RegionParameters are the fitted temporal growth parameters of one region,
// evaluated with the Gompertz law Amplitude*exp(-exp(-Peak*(t-Latency))).
type RegionParameters struct {
	Amplitude float64 `json:"Amplitude"`
	Peak      float64 `json:"Peak"`
	Latency   float64 `json:"Latency"`
}

// Rate evaluates the Gompertz growth of the region at time t
func (rp RegionParameters) Rate(t float64) float64 {
	return rp.Amplitude * math.Exp(-math.Exp(-rp.Peak*(t-rp.Latency)))
}

// RegionalRates evaluates the growth rate of every element from its region
// label. Labels outside the parameter table are an error.
func RegionalRates(params []RegionParameters, labels []int, t float64) (rates []float64, err error) {
	rates = make([]float64, len(labels))
	for k, label := range labels {
		if label < 0 || label >= len(params) {
			return nil, fmt.Errorf("element %d has region label %d, only %d regions are parameterized",
				k, label, len(params))
		}
		rates[k] = params[label].Rate(t)
	}
	return
}
