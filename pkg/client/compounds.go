package client

import (
	"context"
	"net/url"
	"strconv"
)

// CompoundsClient covers compound lookups.
type CompoundsClient struct {
	client *Client
}

func compoundPath(id string, parts ...string) string {
	p := apiPrefix + "/compounds/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// List returns the compounds registered by owner, newest first. limit <= 0
// uses the server default.
func (c *CompoundsClient) List(ctx context.Context, owner string, limit int) ([]Compound, error) {
	if err := requireID("owner", owner); err != nil {
		return nil, err
	}
	q := url.Values{"owner": {owner}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Compounds []Compound `json:"compounds"`
	}
	if err := c.client.get(ctx, apiPrefix+"/compounds?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Compounds, nil
}

// Get returns the registered compound.
func (c *CompoundsClient) Get(ctx context.Context, compoundID string) (*Compound, error) {
	if err := requireID("compound id", compoundID); err != nil {
		return nil, err
	}
	var out Compound
	if err := c.client.get(ctx, compoundPath(compoundID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results returns the latest job the compound took part in. A primary
// compound carries the job's Results; a similar compound carries only its
// own Result. Both are nil while nothing has been written.
func (c *CompoundsClient) Results(ctx context.Context, compoundID string) (*CompoundResults, error) {
	if err := requireID("compound id", compoundID); err != nil {
		return nil, err
	}
	var out CompoundResults
	if err := c.client.get(ctx, compoundPath(compoundID, "results"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Jobs lists the compound's jobs, newest first. limit <= 0 uses the server
// default.
func (c *CompoundsClient) Jobs(ctx context.Context, compoundID string, limit int) ([]Job, error) {
	if err := requireID("compound id", compoundID); err != nil {
		return nil, err
	}
	path := compoundPath(compoundID, "jobs")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

//Personal.AI order the ending
