package chembl

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// The similarity endpoint rejects thresholds below 40.
const (
	minSimilarity = 40
	maxSimilarity = 100
)

var (
	_ bioactivity.SimilaritySource  = (*Client)(nil)
	_ bioactivity.BioactivitySource = (*Client)(nil)
	_ bioactivity.StructureToolkit  = (*Client)(nil)
	_ bioactivity.Resolver          = (*Client)(nil)
)

func similarityPercent(threshold float64) int {
	t := int(math.Round(threshold))
	if t < minSimilarity {
		return minSimilarity
	}
	if t > maxSimilarity {
		return maxSimilarity
	}
	return t
}

// FindSimilar returns up to the configured maximum of candidates at or above
// threshold percent similarity. Records without a structure are dropped.
func (c *Client) FindSimilar(ctx context.Context, structure string, threshold float64) ([]bioactivity.CandidateRef, error) {
	structure = strings.TrimSpace(structure)
	if structure == "" {
		return nil, errors.InvalidParam("structure is required")
	}
	pct := similarityPercent(threshold)

	var out []bioactivity.CandidateRef
	key := fmt.Sprintf("similarity:%s:%d", structure, pct)
	_, err := c.cached(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return c.loadSimilar(ctx, structure, pct)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []bioactivity.CandidateRef{}
	}
	c.logger.Debug("similarity search done",
		logging.String("structure", structure),
		logging.Int("threshold", pct),
		logging.Int("found", len(out)))
	return out, nil
}

func (c *Client) loadSimilar(ctx context.Context, structure string, pct int) ([]bioactivity.CandidateRef, error) {
	path := fmt.Sprintf("/similarity/%s/%d.json", url.PathEscape(structure), pct)
	limit := c.cfg.PageLimit
	if c.maxSimilar > 0 && c.maxSimilar < limit {
		limit = c.maxSimilar
	}

	out := make([]bioactivity.CandidateRef, 0)
	for offset := 0; ; offset += limit {
		var page moleculeList
		err := c.getJSON(ctx, "similarity", path, pageQuery(nil, limit, offset), &page)
		if err == errNotFound {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		for _, m := range page.Molecules {
			if m.ChEMBLID == "" || m.structure() == "" {
				continue
			}
			out = append(out, m.candidate())
			if c.maxSimilar > 0 && len(out) >= c.maxSimilar {
				return out, nil
			}
		}
		if page.PageMeta.Next == nil || len(page.Molecules) == 0 {
			return out, nil
		}
	}
}

// Resolve looks up the structure by canonical SMILES. Unknown structures
// yield a nil ref.
func (c *Client) Resolve(ctx context.Context, structure string) (*bioactivity.CandidateRef, error) {
	structure = strings.TrimSpace(structure)
	if structure == "" {
		return nil, errors.InvalidParam("structure is required")
	}

	var ref bioactivity.CandidateRef
	found, err := c.cached(ctx, "structure:"+structure, &ref, func(ctx context.Context) (interface{}, error) {
		q := url.Values{"molecule_structures__canonical_smiles__flexmatch": {structure}}
		var page moleculeList
		err := c.getJSON(ctx, "resolve", "/molecule.json", pageQuery(q, 1, 0), &page)
		if err == errNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if len(page.Molecules) == 0 || page.Molecules[0].ChEMBLID == "" {
			return nil, nil
		}
		cand := page.Molecules[0].candidate()
		cand.Similarity = maxSimilarity
		return cand, nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &ref, nil
}

// molecule fetches one record by ChEMBL ID. Unknown IDs yield nil.
func (c *Client) molecule(ctx context.Context, id string) (*bioactivity.CandidateRef, error) {
	var ref bioactivity.CandidateRef
	found, err := c.cached(ctx, "molecule:"+id, &ref, func(ctx context.Context) (interface{}, error) {
		var m molecule
		err := c.getJSON(ctx, "molecule", "/molecule/"+url.PathEscape(id)+".json", nil, &m)
		if err == errNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if m.ChEMBLID == "" {
			return nil, nil
		}
		return m.candidate(), nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &ref, nil
}

// StructureProps returns the descriptors of the compound. The external ID is
// preferred; without one the structure is resolved first. nil props with no
// error means the source does not know the compound.
func (c *Client) StructureProps(ctx context.Context, structure, externalID string) (*compound.Properties, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		ref, err := c.Resolve(ctx, structure)
		if err != nil || ref == nil {
			return nil, err
		}
		if ref.Properties != nil {
			return ref.Properties, nil
		}
		externalID = ref.ExternalID
	}

	ref, err := c.molecule(ctx, externalID)
	if err != nil || ref == nil {
		return nil, err
	}
	return ref.Properties, nil
}

// FetchBioactivities pages through every activity of externalID restricted
// to types. An empty types list fetches all types.
func (c *Client) FetchBioactivities(ctx context.Context, externalID string, types []string) ([]bioactivity.Measurement, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.InvalidParam("external id is required")
	}
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	typeList := strings.Join(sorted, ",")

	var out []bioactivity.Measurement
	key := fmt.Sprintf("activities:%s:%s", externalID, typeList)
	_, err := c.cached(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return c.loadActivities(ctx, externalID, typeList)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []bioactivity.Measurement{}
	}
	return out, nil
}

func (c *Client) loadActivities(ctx context.Context, externalID, typeList string) ([]bioactivity.Measurement, error) {
	q := url.Values{"molecule_chembl_id": {externalID}}
	if typeList != "" {
		q.Set("standard_type__in", typeList)
	}
	limit := c.cfg.PageLimit

	out := make([]bioactivity.Measurement, 0)
	for offset := 0; ; offset += limit {
		var page activityList
		err := c.getJSON(ctx, "activities", "/activity.json", pageQuery(q, limit, offset), &page)
		if err == errNotFound {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		for _, a := range page.Activities {
			out = append(out, a.measurement())
		}
		if page.PageMeta.Next == nil || len(page.Activities) == 0 {
			return out, nil
		}
	}
}

func pageQuery(base url.Values, limit, offset int) url.Values {
	q := url.Values{}
	for k, v := range base {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return q
}

//Personal.AI order the ending
