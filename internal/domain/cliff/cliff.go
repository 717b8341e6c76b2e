// Package cliff detects activity cliffs: pairs of compounds from the same
// similarity neighbourhood whose potencies differ by more than a threshold.
package cliff

import (
	"math"
	"sort"
)

// DefaultThreshold is the potency difference, in log units, above which a
// pair is significant.
const DefaultThreshold = 1.0

// Sample is one potency observation of a compound, typically the pActivity of
// a single measurement.
type Sample struct {
	CompoundID      string
	Name            string
	Structure       string
	PActivity       float64
	MolecularWeight float64
}

// Compound is the per-compound aggregate fed into Analyze.
type Compound struct {
	ID              string  `json:"compound_id"`
	Name            string  `json:"name,omitempty"`
	Structure       string  `json:"structure,omitempty"`
	MeanPotency     float64 `json:"mean_p_activity"`
	MolecularWeight float64 `json:"molecular_weight"`
	Samples         int     `json:"samples"`
}

// Pair is an unordered compound pair. A.ID < B.ID always holds.
type Pair struct {
	A                 Compound `json:"compound_a"`
	B                 Compound `json:"compound_b"`
	PotencyDifference float64  `json:"potency_difference"`
	WeightDifference  float64  `json:"molecular_weight_difference"`
	Significant       bool     `json:"significant"`
}

// Report is the outcome of Analyze.
type Report struct {
	Threshold        float64 `json:"threshold"`
	TotalPairs       int     `json:"total_pairs"`
	SignificantPairs int     `json:"significant_pairs"`
	Pairs            []Pair  `json:"pairs"`
}

// Significant returns the significant pairs in report order.
func (r Report) Significant() []Pair {
	out := make([]Pair, 0, r.SignificantPairs)
	for _, p := range r.Pairs {
		if p.Significant {
			out = append(out, p)
		}
	}
	return out
}

// Options tunes Analyze.
type Options struct {
	// Threshold overrides DefaultThreshold when positive.
	Threshold float64
	// SignificantOnly drops non-significant pairs from Report.Pairs. Counts
	// are unaffected.
	SignificantOnly bool
}

// Aggregate groups samples by compound and averages their potency. Samples
// without a compound ID or with a non-finite potency are ignored; a zero
// potency (1 mM) is a real measurement. The structure, name and
// molecular weight of the first sample of each compound are kept. The result
// is ordered by compound ID.
func Aggregate(samples []Sample) []Compound {
	type acc struct {
		c   Compound
		sum float64
	}
	byID := make(map[string]*acc)
	for _, s := range samples {
		if s.CompoundID == "" || math.IsNaN(s.PActivity) || math.IsInf(s.PActivity, 0) {
			continue
		}
		a, ok := byID[s.CompoundID]
		if !ok {
			a = &acc{c: Compound{
				ID:              s.CompoundID,
				Name:            s.Name,
				Structure:       s.Structure,
				MolecularWeight: s.MolecularWeight,
			}}
			byID[s.CompoundID] = a
		}
		a.sum += s.PActivity
		a.c.Samples++
	}

	out := make([]Compound, 0, len(byID))
	for _, a := range byID {
		a.c.MeanPotency = a.sum / float64(a.c.Samples)
		out = append(out, a.c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Analyze evaluates every unordered pair of compounds. Fewer than two
// compounds yield an empty report. Pairs are ordered by potency difference,
// largest first, ties broken by (A.ID, B.ID) ascending.
func Analyze(compounds []Compound, opts Options) Report {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	report := Report{Threshold: threshold, Pairs: []Pair{}}
	if len(compounds) < 2 {
		return report
	}

	for i := 0; i < len(compounds); i++ {
		for j := i + 1; j < len(compounds); j++ {
			a, b := compounds[i], compounds[j]
			if b.ID < a.ID {
				a, b = b, a
			}
			diff := math.Abs(a.MeanPotency - b.MeanPotency)
			p := Pair{
				A:                 a,
				B:                 b,
				PotencyDifference: round3(diff),
				WeightDifference:  round3(math.Abs(a.MolecularWeight - b.MolecularWeight)),
				Significant:       diff > threshold,
			}
			report.TotalPairs++
			if p.Significant {
				report.SignificantPairs++
			} else if opts.SignificantOnly {
				continue
			}
			report.Pairs = append(report.Pairs, p)
		}
	}

	sort.SliceStable(report.Pairs, func(i, j int) bool {
		pi, pj := report.Pairs[i], report.Pairs[j]
		if pi.PotencyDifference != pj.PotencyDifference {
			return pi.PotencyDifference > pj.PotencyDifference
		}
		if pi.A.ID != pj.A.ID {
			return pi.A.ID < pj.A.ID
		}
		return pi.B.ID < pj.B.ID
	})
	return report
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

//Personal.AI order the ending
