package client

import "context"

// MetricsClient computes efficiency metrics on the server.
type MetricsClient struct {
	client *Client
}

// Compute returns the efficiency indices of a single measurement.
func (m *MetricsClient) Compute(ctx context.Context, req MetricsRequest) (*Metrics, error) {
	var out Metrics
	if err := m.client.post(ctx, apiPrefix+"/metrics/compute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
