// Package bioactivity defines bioactivity measurements, the external data
// sources that provide them, and their conversion into efficiency-annotated
// results.
package bioactivity

import (
	"context"
	"math"
	"strings"

	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
)

// Measurement is one raw bioactivity record as returned by the source.
// Value is nil when the source had no numeric value.
type Measurement struct {
	TargetID     string   `json:"target_id"`
	ActivityType string   `json:"activity_type"`
	Relation     string   `json:"relation,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	Units        string   `json:"units"`
	AssayID      string   `json:"assay_id,omitempty"`
}

// ProcessedMeasurement is an accepted measurement with its efficiency indices.
type ProcessedMeasurement struct {
	TargetID     string             `json:"target_id"`
	ActivityType string             `json:"activity_type"`
	Relation     string             `json:"relation,omitempty"`
	ValueNM      float64            `json:"value_nm"`
	Units        string             `json:"units"`
	AssayID      string             `json:"assay_id,omitempty"`
	Metrics      efficiency.Metrics `json:"metrics"`
}

// CandidateRef is a compound proposed by the similarity source.
type CandidateRef struct {
	ExternalID string               `json:"external_id"`
	Structure  string               `json:"structure"`
	Name       string               `json:"name,omitempty"`
	Similarity float64              `json:"similarity"`
	Properties *compound.Properties `json:"properties,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// SimilaritySource finds structurally similar compounds. threshold is a
// percentage in [0, 100].
type SimilaritySource interface {
	FindSimilar(ctx context.Context, structure string, threshold float64) ([]CandidateRef, error)
}

// BioactivitySource fetches measurements for an external compound ID,
// restricted to the given activity types.
type BioactivitySource interface {
	FetchBioactivities(ctx context.Context, externalID string, types []string) ([]Measurement, error)
}

// StructureToolkit derives molecular descriptors of a compound. Implementations
// may use the external ID when present and fall back to the structure.
type StructureToolkit interface {
	StructureProps(ctx context.Context, structure, externalID string) (*compound.Properties, error)
}

// Resolver maps a structure to its identifier in the bioactivity source. It
// returns a nil ref and no error when the structure is unknown to the source.
type Resolver interface {
	Resolve(ctx context.Context, structure string) (*CandidateRef, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Filtering and processing
// ─────────────────────────────────────────────────────────────────────────────

// Filter selects the measurements that enter metric computation.
type Filter struct {
	// ActivityTypes limits accepted standard types; empty accepts all.
	ActivityTypes []string
	// Units lists the accepted units; empty means nM only.
	Units []string
}

// SkipReason explains why a measurement was not processed.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipNoValue     SkipReason = "no_value"
	SkipNonPositive SkipReason = "non_positive"
	SkipUnits       SkipReason = "units"
	SkipType        SkipReason = "activity_type"
)

// Check returns SkipNone when m is accepted.
func (f Filter) Check(m Measurement) SkipReason {
	if m.Value == nil || math.IsNaN(*m.Value) || math.IsInf(*m.Value, 0) {
		return SkipNoValue
	}
	if *m.Value <= 0 {
		return SkipNonPositive
	}
	units := f.Units
	if len(units) == 0 {
		units = []string{"nM"}
	}
	if !containsFold(units, strings.TrimSpace(m.Units)) {
		return SkipUnits
	}
	if len(f.ActivityTypes) > 0 && !containsFold(f.ActivityTypes, strings.TrimSpace(m.ActivityType)) {
		return SkipType
	}
	return SkipNone
}

// Outcome is the result of Process.
type Outcome struct {
	Results []ProcessedMeasurement
	Skipped map[SkipReason]int
}

// SkippedTotal returns the number of rejected measurements.
func (o Outcome) SkippedTotal() int {
	n := 0
	for _, c := range o.Skipped {
		n += c
	}
	return n
}

// Process filters measurements and computes efficiency indices against the
// compound's properties. Rejected measurements are counted, never fatal. A
// nil props yields PActivity-only metrics.
func Process(measurements []Measurement, props *compound.Properties, f Filter) Outcome {
	out := Outcome{Results: make([]ProcessedMeasurement, 0, len(measurements)), Skipped: map[SkipReason]int{}}

	var in efficiency.Input
	if props != nil {
		in = efficiency.Input{
			MolecularWeight:  props.MolecularWeight,
			PolarSurfaceArea: props.PolarSurfaceArea,
			HeavyAtoms:       props.HeavyAtoms,
			PolarAtoms:       props.PolarAtoms(),
		}
	}

	for _, m := range measurements {
		if reason := f.Check(m); reason != SkipNone {
			out.Skipped[reason]++
			continue
		}
		in.ValueNM = *m.Value
		out.Results = append(out.Results, ProcessedMeasurement{
			TargetID:     m.TargetID,
			ActivityType: m.ActivityType,
			Relation:     m.Relation,
			ValueNM:      *m.Value,
			Units:        m.Units,
			AssayID:      m.AssayID,
			Metrics:      efficiency.ComputeInput(in),
		})
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
