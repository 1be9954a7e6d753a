package mechanics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Material holds the element independent constants of the neo-Hookean model
type Material struct {
	Bulk    float64 // K, bulk modulus acting on the averaged nodal volume change
	Penalty float64 // k, penalty on the clamped smallest stretch of degenerate elements
	Eps     float64 // Stretch threshold below which the degenerate branch is used
}

// Branch tags which closed form produced a StressResult
type Branch uint8

const (
	Regular    Branch = iota // Direct neo-Hookean formula
	Degenerate               // Principal stretch formula with the smallest stretch clamped at Eps
)

func (b Branch) String() string {
	switch b {
	case Regular:
		return "Regular"
	case Degenerate:
		return "Degenerate"
	}
	return fmt.Sprintf("Branch(%d)", uint8(b))
}

// StressResult is the first Piola-Kirchhoff stress and strain energy density of
// one element, tagged with the branch that computed it.
type StressResult struct {
	P      *mat.Dense
	Energy float64 // Strain energy per unit grown reference volume
	J      float64 // det(F)
	Branch Branch
}

const stretchFloor = 1e-25

// ElementStress selects the branch for deformation gradient F and evaluates it.
// Jn holds the current/reference nodal volume ratios of the four vertices.
// The regular branch is used when the smallest eigenvalue of B = F·Fᵗ is at
// least Eps² and det(F) > 0; otherwise the degenerate branch is used.
func ElementStress(F mat.Matrix, mu float64, Jn [4]float64, m Material) StressResult {
	var (
		B mat.Dense
	)
	B.Mul(F, F.T())
	if smallestEigenvalue(&B) >= m.Eps*m.Eps && mat.Det(F) > 0 {
		return RegularStress(F, mu, Jn, m)
	}
	return DegenerateStress(F, mu, Jn, m)
}

// RegularStress evaluates the neo-Hookean Cauchy stress
//
//	S = (B - I·tr(B)/3)·mu/(J·J^(2/3)) + I·K·(Ja - 1)
//
// and returns P = J·S·F⁻ᵗ with W = mu/2·(tr(B)/J^(2/3) - 3) + K/2·mean((Ji-1)²).
// It requires det(F) > 0.
func RegularStress(F mat.Matrix, mu float64, Jn [4]float64, m Material) (res StressResult) {
	var (
		B, S, FinvT mat.Dense
		J           = mat.Det(F)
		Ja          = meanRatio(Jn)
		powJ23      = math.Pow(J, 2./3.)
	)
	B.Mul(F, F.T())
	trB := mat.Trace(&B)
	S.Apply(func(i, j int, b float64) float64 {
		s := b * mu / (J * powJ23)
		if i == j {
			s += -trB/3.*mu/(J*powJ23) + m.Bulk*(Ja-1.)
		}
		return s
	}, &B)
	FinvT.CloneFrom(inverse(F.T()))
	res.P = mat.NewDense(3, 3, nil)
	res.P.Mul(&S, &FinvT)
	res.P.Scale(J, res.P)
	res.Energy = 0.5*mu*(trB/powJ23-3.) + 0.5*m.Bulk*meanSquaredDeviation(Jn)
	res.J = J
	res.Branch = Regular
	return
}

// DegenerateStress evaluates the stress of a near singular or inverted element
// from the principal stretches of C = Fᵗ·F. The smallest stretch l1 is
// clamped at Eps and the energy is linearized in (l1 - Eps) with an added
// penalty k/2·(l1 - Eps)², which keeps every term finite and matches
// RegularStress when l1 = Eps.
func DegenerateStress(F mat.Matrix, mu float64, Jn [4]float64, m Material) (res StressResult) {
	var (
		C, v2, U, Pd mat.Dense
		eps          = m.Eps
		Ja           = meanRatio(Jn)
		es           mat.EigenSym
	)
	C.Mul(F.T(), F)
	if ok := es.Factorize(symmetric(&C), true); !ok {
		return unresolved(F)
	}
	w := es.Values(nil) // Ascending, so l1 is the smallest stretch
	es.VectorsTo(&v2)
	l1 := math.Sqrt(math.Max(w[0], 0))
	l2 := math.Sqrt(math.Max(w[1], 0))
	l3 := math.Sqrt(math.Max(w[2], 0))

	if mat.Det(&v2) < 0 {
		negateColumn(&v2, 0)
	}

	// Left stretch rotation U = F·v2·diag(1/l)
	Fdi := mat.NewDiagDense(3, []float64{1, 1, 1})
	for i, l := range []float64{l1, l2, l3} {
		if l >= stretchFloor {
			Fdi.SetDiag(i, 1./l)
		}
	}
	U.Mul(F, &v2)
	U.Mul(&U, Fdi)
	if l1 < stretchFloor {
		// Collapsed along the first principal axis, complete the frame
		U.Set(0, 0, U.At(1, 1)*U.At(2, 2)-U.At(2, 1)*U.At(1, 2))
		U.Set(1, 0, U.At(2, 1)*U.At(0, 2)-U.At(0, 1)*U.At(2, 2))
		U.Set(2, 0, U.At(0, 1)*U.At(1, 2)-U.At(1, 1)*U.At(0, 2))
	}
	if mat.Det(F) < 0 {
		l1 = -l1
		negateColumn(&U, 0)
	}

	l2, l3 = math.Max(l2, eps), math.Max(l3, eps)
	var (
		pow23 = math.Pow(eps*l2*l3, 2./3.)
		dl    = l1 - eps
		bulk  = m.Bulk * (Ja - 1.)
	)
	Pd.ReuseAs(3, 3)
	Pd.Set(0, 0, mu/3.*(2.*eps-l2*l2/eps-l3*l3/eps)/pow23+m.Penalty*dl+bulk*l2*l3)
	Pd.Set(1, 1, mu/3.*(-eps*eps/l2+2.*l2-l3*l3/l2)/pow23+
		mu/9.*(-4.*eps/l2-4./eps*l2+2./eps/l2*l3*l3)/pow23*dl+bulk*l1*l3)
	Pd.Set(2, 2, mu/3.*(-eps*eps/l3-l2*l2/l3+2.*l3)/pow23+
		mu/9.*(-4.*eps/l3+2./eps*l2*l2/l3-4./eps*l3)/pow23*dl+bulk*l1*l2)

	res.P = mat.NewDense(3, 3, nil)
	res.P.Mul(&U, &Pd)
	res.P.Mul(res.P, v2.T())
	res.Energy = 0.5*mu*((eps*eps+l2*l2+l3*l3)/pow23-3.) +
		mu/3.*(2.*eps-l2*l2/eps-l3*l3/eps)/pow23*dl +
		0.5*m.Penalty*dl*dl +
		0.5*m.Bulk*meanSquaredDeviation(Jn)
	res.J = mat.Det(F)
	res.Branch = Degenerate
	return
}

// unresolved is the result for a gradient whose stretches cannot be computed.
// It is NaN throughout so the failure shows in the energy diagnostics.
func unresolved(F mat.Matrix) (res StressResult) {
	nan := math.NaN()
	res.P = mat.NewDense(3, 3, []float64{nan, nan, nan, nan, nan, nan, nan, nan, nan})
	res.Energy = nan
	res.J = mat.Det(F)
	res.Branch = Degenerate
	return
}

// smallestEigenvalue returns -Inf when the decomposition fails, which selects
// the degenerate branch.
func smallestEigenvalue(B *mat.Dense) float64 {
	var (
		es mat.EigenSym
	)
	if ok := es.Factorize(symmetric(B), false); !ok {
		return math.Inf(-1)
	}
	return es.Values(nil)[0]
}

// symmetric returns the symmetric part of a 3x3 matrix that is symmetric up to rounding
func symmetric(A *mat.Dense) *mat.SymDense {
	S := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			S.SetSym(i, j, 0.5*(A.At(i, j)+A.At(j, i)))
		}
	}
	return S
}

// inverse returns A⁻¹, accepting ill conditioned but non singular matrices
func inverse(A mat.Matrix) *mat.Dense {
	var (
		Ainv mat.Dense
		cond mat.Condition
	)
	if err := Ainv.Inverse(A); err != nil && !errors.As(err, &cond) {
		panic(err)
	}
	return &Ainv
}

func negateColumn(A *mat.Dense, j int) {
	for i := 0; i < 3; i++ {
		A.Set(i, j, -A.At(i, j))
	}
}

func meanRatio(Jn [4]float64) float64 {
	return 0.25 * (Jn[0] + Jn[1] + Jn[2] + Jn[3])
}

func meanSquaredDeviation(Jn [4]float64) (msd float64) {
	for _, j := range Jn {
		msd += (j - 1.) * (j - 1.)
	}
	return 0.25 * msd
}
