package result

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/cliff"
)

// TypeStats aggregates the computable measurements of one activity type.
type TypeStats struct {
	ActivityType  string  `json:"activity_type"`
	Measurements  int     `json:"measurements"`
	MeanPActivity float64 `json:"mean_p_activity"`
	MeanSEI       float64 `json:"mean_sei"`
	MeanBEI       float64 `json:"mean_bei"`
}

// Summary condenses a document for the job summary view.
type Summary struct {
	JobID                 uuid.UUID   `json:"job_id"`
	SimilarityThreshold   float64     `json:"similarity_threshold"`
	CompoundsProcessed    int         `json:"compounds_processed"`
	SimilarCompoundsFound int         `json:"similar_compounds_found"`
	CompoundsWithActivity int         `json:"compounds_with_activity"`
	TotalMeasurements     int         `json:"total_measurements"`
	ByActivityType        []TypeStats `json:"by_activity_type"`
	ProcessingDate        time.Time   `json:"processing_date"`
}

// Summarize builds the summary of d. threshold is the job's similarity
// threshold. SEI and BEI means only include non-sentinel values.
func Summarize(d *Document, threshold float64) Summary {
	s := Summary{
		JobID:                 d.JobID,
		SimilarityThreshold:   threshold,
		SimilarCompoundsFound: len(d.SimilarCompounds),
		ProcessingDate:        d.UpdatedAt,
		ByActivityType:        []TypeStats{},
	}

	type acc struct {
		n, nSEI, nBEI  int
		pAct, sei, bei float64
	}
	byType := map[string]*acc{}

	for _, c := range d.Compounds() {
		s.CompoundsProcessed++
		withActivity := false
		for _, r := range c.Results {
			if !r.Metrics.Computable() {
				continue
			}
			withActivity = true
			s.TotalMeasurements++
			a, ok := byType[r.ActivityType]
			if !ok {
				a = &acc{}
				byType[r.ActivityType] = a
			}
			a.n++
			a.pAct += r.Metrics.PActivity
			if r.Metrics.SEI != 0 {
				a.nSEI++
				a.sei += r.Metrics.SEI
			}
			if r.Metrics.BEI != 0 {
				a.nBEI++
				a.bei += r.Metrics.BEI
			}
		}
		if withActivity {
			s.CompoundsWithActivity++
		}
	}

	for t, a := range byType {
		ts := TypeStats{ActivityType: t, Measurements: a.n, MeanPActivity: round3(a.pAct / float64(a.n))}
		if a.nSEI > 0 {
			ts.MeanSEI = round3(a.sei / float64(a.nSEI))
		}
		if a.nBEI > 0 {
			ts.MeanBEI = round3(a.bei / float64(a.nBEI))
		}
		s.ByActivityType = append(s.ByActivityType, ts)
	}
	sort.Slice(s.ByActivityType, func(i, j int) bool {
		return s.ByActivityType[i].ActivityType < s.ByActivityType[j].ActivityType
	})
	return s
}

// CliffSamples flattens d into potency samples, one per computable
// measurement.
func CliffSamples(d *Document) []cliff.Sample {
	var out []cliff.Sample
	for _, c := range d.Compounds() {
		for _, r := range c.Results {
			if !r.Metrics.Computable() {
				continue
			}
			out = append(out, cliff.Sample{
				CompoundID:      c.CompoundID,
				Name:            c.Name,
				Structure:       c.Structure,
				PActivity:       r.Metrics.PActivity,
				MolecularWeight: c.MolecularWeight(),
			})
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

//Personal.AI order the ending
