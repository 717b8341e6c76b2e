// Package result defines the per-job analysis result document that the
// aggregator assembles incrementally, plus the read-side projections built
// from it (summary, cliff input, tabular export).
package result

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
)

// CompoundResult is one compound's contribution to a job's results.
type CompoundResult struct {
	CompoundID string                             `json:"compound_id"`
	ExternalID string                             `json:"external_id,omitempty"`
	Name       string                             `json:"name,omitempty"`
	Structure  string                             `json:"structure,omitempty"`
	Similarity *float64                           `json:"similarity,omitempty"`
	Properties *compound.Properties               `json:"properties,omitempty"`
	Results    []bioactivity.ProcessedMeasurement `json:"results"`
	Skipped    int                                `json:"skipped_measurements,omitempty"`
	Error      string                             `json:"error,omitempty"`
	UpdatedAt  time.Time                          `json:"updated_at"`
}

// MolecularWeight returns the weight from Properties, or 0.
func (c CompoundResult) MolecularWeight() float64 {
	if c.Properties == nil {
		return 0
	}
	return c.Properties.MolecularWeight
}

// Document is the aggregated result of one job. SimilarCompounds is ordered
// by compound ID.
type Document struct {
	JobID            uuid.UUID        `json:"job_id"`
	PrimaryCompound  *CompoundResult  `json:"primary_compound,omitempty"`
	SimilarCompounds []CompoundResult `json:"similar_compounds"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SortSimilar orders SimilarCompounds by compound ID.
func (d *Document) SortSimilar() {
	sort.Slice(d.SimilarCompounds, func(i, j int) bool {
		return d.SimilarCompounds[i].CompoundID < d.SimilarCompounds[j].CompoundID
	})
}

// Compounds returns the primary entry, if any, followed by the similar ones.
func (d *Document) Compounds() []CompoundResult {
	out := make([]CompoundResult, 0, len(d.SimilarCompounds)+1)
	if d.PrimaryCompound != nil {
		out = append(out, *d.PrimaryCompound)
	}
	return append(out, d.SimilarCompounds...)
}

// Find returns the entry for compoundID.
func (d *Document) Find(compoundID string) (*CompoundResult, bool) {
	if d.PrimaryCompound != nil && d.PrimaryCompound.CompoundID == compoundID {
		return d.PrimaryCompound, true
	}
	for i := range d.SimilarCompounds {
		if d.SimilarCompounds[i].CompoundID == compoundID {
			return &d.SimilarCompounds[i], true
		}
	}
	return nil, false
}

// Store persists result documents. Writes for different compounds of the
// same job never overwrite each other.
type Store interface {
	// Upsert replaces the entry of entry.CompoundID in jobID's document,
	// creating the document when needed.
	Upsert(ctx context.Context, jobID uuid.UUID, entry CompoundResult, isPrimary bool) error

	// Fetch returns errors.ErrCodeResultNotFound when the job has no document.
	Fetch(ctx context.Context, jobID uuid.UUID) (*Document, error)
}

// Archive stores immutable snapshots of finished documents.
type Archive interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

//Personal.AI order the ending
