package client

import "time"

// Job statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Job is the status record of an analysis job.
type Job struct {
	ID                  string    `json:"id"`
	CompoundID          string    `json:"compound_id"`
	UserID              string    `json:"user_id,omitempty"`
	Status              string    `json:"status"`
	Progress            float64   `json:"progress"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	Error               string    `json:"error,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Terminal reports whether the job will not change any more.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// Properties are the structural descriptors of a compound.
type Properties struct {
	MolecularWeight  float64  `json:"molecular_weight"`
	PolarSurfaceArea float64  `json:"polar_surface_area"`
	HBondDonors      *int     `json:"hbond_donors,omitempty"`
	HBondAcceptors   *int     `json:"hbond_acceptors,omitempty"`
	HeavyAtoms       int      `json:"heavy_atoms"`
	DrugLikeness     *float64 `json:"drug_likeness,omitempty"`
	Formula          string   `json:"formula,omitempty"`
}

// Compound is a registered structure.
type Compound struct {
	ID         string      `json:"id"`
	Structure  string      `json:"structure"`
	Name       string      `json:"name"`
	OwnerID    string      `json:"owner_id,omitempty"`
	ExternalID *string     `json:"external_id,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// SubmitRequest asks for the analysis of a structure.
type SubmitRequest struct {
	Structure string   `json:"structure"`
	Name      string   `json:"name,omitempty"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Threshold *float64 `json:"similarity_threshold,omitempty"`
}

// SubmitResponse is the job serving a submission.
type SubmitResponse struct {
	Job      *Job      `json:"job"`
	Compound *Compound `json:"compound"`
	Reused   bool      `json:"reused"`
}

// Metrics are the efficiency indices of one measurement. A zero index means
// not computable; Computed tells a 1 mM measurement (PActivity 0) apart from
// a missing one.
type Metrics struct {
	PActivity float64 `json:"p_activity"`
	SEI       float64 `json:"sei"`
	BEI       float64 `json:"bei"`
	NSEI      float64 `json:"nsei"`
	NBEI      float64 `json:"nbei"`
	Computed  bool    `json:"computed"`
}

// Measurement is a normalized bioactivity measurement.
type Measurement struct {
	TargetID     string  `json:"target_id"`
	ActivityType string  `json:"activity_type"`
	Relation     string  `json:"relation,omitempty"`
	ValueNM      float64 `json:"value_nm"`
	Units        string  `json:"units"`
	AssayID      string  `json:"assay_id,omitempty"`
	Metrics      Metrics `json:"metrics"`
}

// CompoundResult is one compound's entry in a job's results.
type CompoundResult struct {
	CompoundID string        `json:"compound_id"`
	ExternalID string        `json:"external_id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Structure  string        `json:"structure,omitempty"`
	Similarity *float64      `json:"similarity,omitempty"`
	Properties *Properties   `json:"properties,omitempty"`
	Results    []Measurement `json:"results"`
	Skipped    int           `json:"skipped_measurements,omitempty"`
	Error      string        `json:"error,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ResultDocument is the aggregated result of a job.
type ResultDocument struct {
	JobID            string           `json:"job_id"`
	PrimaryCompound  *CompoundResult  `json:"primary_compound,omitempty"`
	SimilarCompounds []CompoundResult `json:"similar_compounds"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// CompoundResults is the latest job a compound took part in and what it has
// produced so far.
type CompoundResults struct {
	Job       *Job            `json:"job"`
	IsPrimary bool            `json:"is_primary"`
	Results   *ResultDocument `json:"results,omitempty"`
	Result    *CompoundResult `json:"result,omitempty"`
}

// TypeStats aggregates one activity type in a summary.
type TypeStats struct {
	ActivityType  string  `json:"activity_type"`
	Measurements  int     `json:"measurements"`
	MeanPActivity float64 `json:"mean_p_activity"`
	MeanSEI       float64 `json:"mean_sei"`
	MeanBEI       float64 `json:"mean_bei"`
}

// Summary condenses a job's results.
type Summary struct {
	JobID                 string      `json:"job_id"`
	SimilarityThreshold   float64     `json:"similarity_threshold"`
	CompoundsProcessed    int         `json:"compounds_processed"`
	SimilarCompoundsFound int         `json:"similar_compounds_found"`
	CompoundsWithActivity int         `json:"compounds_with_activity"`
	TotalMeasurements     int         `json:"total_measurements"`
	ByActivityType        []TypeStats `json:"by_activity_type"`
	ProcessingDate        time.Time   `json:"processing_date"`
}

// CliffCompound is one side of a cliff pair.
type CliffCompound struct {
	ID              string  `json:"compound_id"`
	Name            string  `json:"name,omitempty"`
	Structure       string  `json:"structure,omitempty"`
	MeanPotency     float64 `json:"mean_p_activity"`
	MolecularWeight float64 `json:"molecular_weight"`
	Samples         int     `json:"samples"`
}

// CliffPair is a compared compound pair.
type CliffPair struct {
	A                 CliffCompound `json:"compound_a"`
	B                 CliffCompound `json:"compound_b"`
	PotencyDifference float64       `json:"potency_difference"`
	WeightDifference  float64       `json:"molecular_weight_difference"`
	Significant       bool          `json:"significant"`
}

// CliffReport is the activity cliff analysis of a job.
type CliffReport struct {
	Threshold        float64     `json:"threshold"`
	TotalPairs       int         `json:"total_pairs"`
	SignificantPairs int         `json:"significant_pairs"`
	Pairs            []CliffPair `json:"pairs"`
}

// CliffOptions tunes a cliff query. A nil Threshold uses the server default.
type CliffOptions struct {
	Threshold       *float64
	SignificantOnly bool
}

// Export is a presigned link to an archived result snapshot.
type Export struct {
	JobID  string `json:"job_id"`
	Format string `json:"format"`
	URL    string `json:"url"`
}

// MetricsRequest is an ad hoc efficiency computation.
type MetricsRequest struct {
	ValueNM          float64 `json:"value_nm"`
	MolecularWeight  float64 `json:"molecular_weight"`
	PolarSurfaceArea float64 `json:"polar_surface_area"`
	HeavyAtoms       int     `json:"heavy_atoms"`
	PolarAtoms       *int    `json:"polar_atoms,omitempty"`
}

//Personal.AI order the ending
