// Package efficiency computes ligand efficiency indices for a single
// bioactivity measurement. Every function is pure; non-positive inputs
// degrade to the zero sentinel instead of failing.
package efficiency

import "math"

// nbeiHeavyAtomFactor is the per-heavy-atom correction applied to BEI.
const nbeiHeavyAtomFactor = 0.23

// psaPerPolarAtom approximates the polar surface area contributed by one
// polar atom, in square angstroms.
const psaPerPolarAtom = 20.0

// Metrics holds the efficiency indices of one measurement. A zero index
// other than PActivity means "not computable". PActivity is zero for a 1 mM
// measurement, so Computed marks whether the measurement had a usable value.
type Metrics struct {
	PActivity float64 `json:"p_activity"`
	SEI       float64 `json:"sei"`
	BEI       float64 `json:"bei"`
	NSEI      float64 `json:"nsei"`
	NBEI      float64 `json:"nbei"`
	Computed  bool    `json:"computed"`
}

// Computable reports whether PActivity is defined. When it is false every
// other index is zero as well. Documents stored without the computed flag
// fall back to a non-zero PActivity.
func (m Metrics) Computable() bool {
	return m.Computed || m.PActivity != 0
}

// Input groups the arguments of Compute for callers that build them from
// records rather than literals.
type Input struct {
	ValueNM          float64
	MolecularWeight  float64
	PolarSurfaceArea float64
	HeavyAtoms       int
	PolarAtoms       int
}

// Compute derives the efficiency indices of a measurement:
//
//	pActivity = -log10(valueNM * 1e-9)
//	SEI       = pActivity / (PSA / 100)
//	BEI       = pActivity / (MW / 1000)
//	NSEI      = SEI / polarAtoms
//	nBEI      = BEI - 0.23 * heavyAtoms
//
// An index whose inputs are not positive is left at zero, and so is every
// index derived from it. Results are rounded to three decimals.
func Compute(valueNM, molecularWeight, polarSurfaceArea float64, heavyAtoms, polarAtoms int) Metrics {
	if !(valueNM > 0) || math.IsInf(valueNM, 0) {
		return Metrics{}
	}
	pAct := -math.Log10(valueNM * 1e-9)
	if pAct == 0 {
		pAct = 0 // 1 mM yields -0
	}

	var sei, bei, nsei, nbei float64
	if polarSurfaceArea > 0 {
		sei = pAct / (polarSurfaceArea / 100)
		if polarAtoms > 0 {
			nsei = sei / float64(polarAtoms)
		}
	}
	if molecularWeight > 0 {
		bei = pAct / (molecularWeight / 1000)
		nbei = bei - nbeiHeavyAtomFactor*float64(heavyAtoms)
	}

	return Metrics{
		PActivity: round3(pAct),
		SEI:       round3(sei),
		BEI:       round3(bei),
		NSEI:      round3(nsei),
		NBEI:      round3(nbei),
		Computed:  true,
	}
}

// ComputeInput is Compute over an Input.
func ComputeInput(in Input) Metrics {
	return Compute(in.ValueNM, in.MolecularWeight, in.PolarSurfaceArea, in.HeavyAtoms, in.PolarAtoms)
}

// PActivity returns -log10(valueNM * 1e-9) rounded to three decimals, or 0
// for non-positive values.
func PActivity(valueNM float64) float64 {
	if !(valueNM > 0) || math.IsInf(valueNM, 0) {
		return 0
	}
	return round3(-math.Log10(valueNM * 1e-9))
}

// EstimatePolarAtoms approximates the polar atom count from the polar
// surface area when donor/acceptor counts are unavailable. Never below 1.
func EstimatePolarAtoms(polarSurfaceArea float64) int {
	n := int(math.Round(polarSurfaceArea / psaPerPolarAtom))
	if n < 1 {
		return 1
	}
	return n
}

// PolarAtoms returns donors+acceptors when measured, otherwise the estimate
// from the polar surface area.
func PolarAtoms(hbondDonors, hbondAcceptors *int, polarSurfaceArea float64) int {
	if hbondDonors != nil && hbondAcceptors != nil {
		if n := *hbondDonors + *hbondAcceptors; n > 0 {
			return n
		}
	}
	return EstimatePolarAtoms(polarSurfaceArea)
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}

//Personal.AI order the ending
