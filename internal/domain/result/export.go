package result

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ArchivePrefix is the object key prefix of every archived snapshot.
const ArchivePrefix = "jobs/"

// ArchiveKey returns the object key of jobID's snapshot in format.
func ArchiveKey(jobID uuid.UUID, format string) string {
	return ArchivePrefix + jobID.String() + "/results." + format
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// ValidFormat reports whether format is a supported export format.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatCSV
}

// csvHeader lists one column per field of a flattened measurement row.
var csvHeader = []string{
	"job_id", "compound_id", "external_id", "name", "structure", "is_primary", "similarity",
	"molecular_weight", "polar_surface_area", "heavy_atoms", "polar_atoms",
	"activity_type", "target_id", "relation", "value_nm", "units",
	"p_activity", "sei", "bei", "nsei", "nbei",
}

// WriteCSV writes d as one row per measurement. Compounds without
// measurements produce a single row with empty activity columns.
func WriteCSV(w io.Writer, d *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i, c := range d.Compounds() {
		primary := i == 0 && d.PrimaryCompound != nil
		base := []string{
			d.JobID.String(), c.CompoundID, c.ExternalID, c.Name, c.Structure,
			strconv.FormatBool(primary), optFloat(c.Similarity),
		}
		if p := c.Properties; p != nil {
			base = append(base, ftoa(p.MolecularWeight), ftoa(p.PolarSurfaceArea),
				strconv.Itoa(p.HeavyAtoms), strconv.Itoa(p.PolarAtoms()))
		} else {
			base = append(base, "", "", "", "")
		}

		if len(c.Results) == 0 {
			row := append(append([]string(nil), base...), make([]string, 10)...)
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		for _, r := range c.Results {
			row := append(append([]string(nil), base...),
				r.ActivityType, r.TargetID, r.Relation, ftoa(r.ValueNM), r.Units,
				ftoa(r.Metrics.PActivity), ftoa(r.Metrics.SEI), ftoa(r.Metrics.BEI),
				ftoa(r.Metrics.NSEI), ftoa(r.Metrics.NBEI),
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes d as indented JSON.
func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

//Personal.AI order the ending
