package chembl

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
)

// flexFloat decodes numbers that the API sends either as JSON numbers or as
// strings. null, "" and unparsable strings decode as invalid.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		f.Value, f.Valid = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value, f.Valid = v, true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

func (f flexFloat) intPtr() *int {
	if !f.Valid {
		return nil
	}
	v := int(math.Round(f.Value))
	return &v
}

type pageMeta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	Next       *string `json:"next"`
	TotalCount int     `json:"total_count"`
}

type moleculeStructures struct {
	CanonicalSmiles  string `json:"canonical_smiles"`
	StandardInchiKey string `json:"standard_inchi_key"`
}

type moleculeProperties struct {
	FullMolWeight flexFloat `json:"full_mwt"`
	PSA           flexFloat `json:"psa"`
	HBA           flexFloat `json:"hba"`
	HBD           flexFloat `json:"hbd"`
	HeavyAtoms    flexFloat `json:"heavy_atoms"`
	QEDWeighted   flexFloat `json:"qed_weighted"`
	Formula       string    `json:"full_molformula"`
}

type molecule struct {
	ChEMBLID   string              `json:"molecule_chembl_id"`
	PrefName   *string             `json:"pref_name"`
	Similarity flexFloat           `json:"similarity"`
	Structures *moleculeStructures `json:"molecule_structures"`
	Properties *moleculeProperties `json:"molecule_properties"`
}

type moleculeList struct {
	Molecules []molecule `json:"molecules"`
	PageMeta  pageMeta   `json:"page_meta"`
}

type activity struct {
	TargetID      string    `json:"target_chembl_id"`
	AssayID       string    `json:"assay_chembl_id"`
	StandardType  string    `json:"standard_type"`
	Relation      *string   `json:"standard_relation"`
	StandardValue flexFloat `json:"standard_value"`
	StandardUnits *string   `json:"standard_units"`
}

type activityList struct {
	Activities []activity `json:"activities"`
	PageMeta   pageMeta   `json:"page_meta"`
}

func (m molecule) structure() string {
	if m.Structures == nil {
		return ""
	}
	return m.Structures.CanonicalSmiles
}

func (m molecule) name() string {
	if m.PrefName == nil {
		return ""
	}
	return *m.PrefName
}

// properties returns nil when the record carries no usable descriptors.
func (m molecule) properties() *compound.Properties {
	p := m.Properties
	if p == nil || !p.FullMolWeight.Valid {
		return nil
	}
	props := &compound.Properties{
		MolecularWeight:  p.FullMolWeight.Value,
		PolarSurfaceArea: p.PSA.Value,
		HBondDonors:      p.HBD.intPtr(),
		HBondAcceptors:   p.HBA.intPtr(),
		DrugLikeness:     p.QEDWeighted.ptr(),
		Formula:          p.Formula,
	}
	if p.HeavyAtoms.Valid {
		props.HeavyAtoms = int(math.Round(p.HeavyAtoms.Value))
	}
	return props
}

func (m molecule) candidate() bioactivity.CandidateRef {
	return bioactivity.CandidateRef{
		ExternalID: m.ChEMBLID,
		Structure:  m.structure(),
		Name:       m.name(),
		Similarity: m.Similarity.Value,
		Properties: m.properties(),
	}
}

func (a activity) measurement() bioactivity.Measurement {
	m := bioactivity.Measurement{
		TargetID:     a.TargetID,
		ActivityType: a.StandardType,
		Value:        a.StandardValue.ptr(),
		AssayID:      a.AssayID,
	}
	if a.Relation != nil {
		m.Relation = *a.Relation
	}
	if a.StandardUnits != nil {
		m.Units = *a.StandardUnits
	}
	return m
}

//Personal.AI order the ending
