// Package compound defines the Compound aggregate registered by the pipeline,
// its derived molecular properties, and its relation to analysis jobs.
package compound

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Status is the lifecycle status of a compound. It is independent of the
// status of any job the compound takes part in.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// maxStructureLength bounds the structure strings accepted from callers.
const maxStructureLength = 4096

// validStructureChars is the SMILES character set. Parsing is delegated to
// the structure toolkit; this only rejects obvious garbage early.
var validStructureChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$/\\%.*:~]+$`)

// ─────────────────────────────────────────────────────────────────────────────
// Properties
// ─────────────────────────────────────────────────────────────────────────────

// Properties are the molecular descriptors derived by the structure toolkit.
// Donor/acceptor counts are pointers because "not measured" differs from zero.
type Properties struct {
	MolecularWeight  float64  `json:"molecular_weight"`
	PolarSurfaceArea float64  `json:"polar_surface_area"`
	HBondDonors      *int     `json:"hbond_donors,omitempty"`
	HBondAcceptors   *int     `json:"hbond_acceptors,omitempty"`
	HeavyAtoms       int      `json:"heavy_atoms"`
	DrugLikeness     *float64 `json:"drug_likeness,omitempty"`
	Formula          string   `json:"formula,omitempty"`
}

// Validate rejects negative descriptors.
func (p Properties) Validate() error {
	if p.MolecularWeight < 0 || p.PolarSurfaceArea < 0 || p.HeavyAtoms < 0 {
		return errors.New(errors.ErrCodeCompoundInvalidProps, "molecular descriptors must not be negative").
			WithDetail(fmt.Sprintf("mw=%v psa=%v heavy_atoms=%d", p.MolecularWeight, p.PolarSurfaceArea, p.HeavyAtoms))
	}
	if (p.HBondDonors != nil && *p.HBondDonors < 0) || (p.HBondAcceptors != nil && *p.HBondAcceptors < 0) {
		return errors.New(errors.ErrCodeCompoundInvalidProps, "hydrogen bond counts must not be negative")
	}
	return nil
}

// PolarAtoms is donors+acceptors when both are known, otherwise an estimate
// from the polar surface area.
func (p Properties) PolarAtoms() int {
	return efficiency.PolarAtoms(p.HBondDonors, p.HBondAcceptors, p.PolarSurfaceArea)
}

// ─────────────────────────────────────────────────────────────────────────────
// Compound
// ─────────────────────────────────────────────────────────────────────────────

// Compound is a registered molecule. Its structure never changes after
// creation; only properties, external ID and status are mutated.
type Compound struct {
	ID         uuid.UUID   `json:"id"`
	Structure  string      `json:"structure"`
	Name       string      `json:"name"`
	OwnerID    string      `json:"owner_id,omitempty"`
	ExternalID *string     `json:"external_id,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewCompound validates the structure and builds a pending compound. An empty
// name falls back to the structure string.
func NewCompound(structure, name, ownerID string) (*Compound, error) {
	structure, err := NormalizeStructure(structure)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = structure
	}
	now := time.Now().UTC()
	return &Compound{
		ID:        uuid.New(),
		Structure: structure,
		Name:      name,
		OwnerID:   strings.TrimSpace(ownerID),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeStructure trims and validates a structure string.
func NormalizeStructure(structure string) (string, error) {
	structure = strings.TrimSpace(structure)
	if structure == "" {
		return "", errors.New(errors.ErrCodeCompoundInvalidStructure, "structure must not be empty")
	}
	if len(structure) > maxStructureLength {
		return "", errors.New(errors.ErrCodeCompoundInvalidStructure, "structure is too long").
			WithDetail(fmt.Sprintf("length=%d max=%d", len(structure), maxStructureLength))
	}
	if !validStructureChars.MatchString(structure) {
		return "", errors.New(errors.ErrCodeCompoundInvalidStructure, "structure contains invalid characters").
			WithDetail("structure=" + structure)
	}
	if err := checkBrackets(structure); err != nil {
		return "", err
	}
	return structure, nil
}

func checkBrackets(structure string) error {
	var stack []rune
	for _, ch := range structure {
		switch ch {
		case '(', '[':
			stack = append(stack, ch)
		case ')', ']':
			open := '('
			if ch == ']' {
				open = '['
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return errors.New(errors.ErrCodeCompoundInvalidStructure, "unmatched bracket in structure").
					WithDetail("structure=" + structure)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		return errors.New(errors.ErrCodeCompoundInvalidStructure, "unclosed bracket in structure").
			WithDetail("structure=" + structure)
	}
	return nil
}

// HasProperties reports whether descriptors have been attached.
func (c *Compound) HasProperties() bool {
	return c.Properties != nil
}

// ExternalRef returns the external identifier or "".
func (c *Compound) ExternalRef() string {
	if c.ExternalID == nil {
		return ""
	}
	return *c.ExternalID
}

// ─────────────────────────────────────────────────────────────────────────────
// Relation
// ─────────────────────────────────────────────────────────────────────────────

// Relation links a compound to a job. Each job has exactly one primary
// relation; similar compounds are related as non-primary.
type Relation struct {
	CompoundID uuid.UUID `json:"compound_id"`
	JobID      uuid.UUID `json:"job_id"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

//Personal.AI order the ending
