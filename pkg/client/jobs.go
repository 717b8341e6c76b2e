package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/compound-analysis/pkg/errors"
)

const defaultPollInterval = 2 * time.Second

// JobsClient covers job submission, status and results.
type JobsClient struct {
	client *Client
}

func jobPath(jobID string, parts ...string) string {
	p := apiPrefix + "/jobs/" + url.PathEscape(jobID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.InvalidParam(name + " is required")
	}
	return nil
}

// Submit registers the structure and queues its analysis. An earlier job for
// the same structure is returned with Reused set.
func (j *JobsClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if strings.TrimSpace(req.Structure) == "" {
		return nil, errors.InvalidParam("structure is required")
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 100) {
		return nil, errors.New(errors.ErrCodeJobThresholdInvalid, "similarity threshold must be within 0..100")
	}
	var out SubmitResponse
	if err := j.client.post(ctx, apiPrefix+"/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the job status record.
func (j *JobsClient) Get(ctx context.Context, jobID string) (*Job, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	var out Job
	if err := j.client.get(ctx, jobPath(jobID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait polls the job until it is completed or failed. onProgress, when not
// nil, sees every polled record.
func (j *JobsClient) Wait(ctx context.Context, jobID string, interval time.Duration, onProgress func(*Job)) (*Job, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := j.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(job)
		}
		if job.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Results returns the full result document of the job.
func (j *JobsClient) Results(ctx context.Context, jobID string) (*ResultDocument, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	var out ResultDocument
	if err := j.client.get(ctx, jobPath(jobID, "results"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompoundResult returns one compound's entry of the job's results.
func (j *JobsClient) CompoundResult(ctx context.Context, jobID, compoundID string) (*CompoundResult, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	if err := requireID("compound id", compoundID); err != nil {
		return nil, err
	}
	var out CompoundResult
	if err := j.client.get(ctx, jobPath(jobID, "results", url.PathEscape(compoundID)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cliffs runs the activity cliff analysis over the job's results.
func (j *JobsClient) Cliffs(ctx context.Context, jobID string, opts CliffOptions) (*CliffReport, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if opts.Threshold != nil {
		q.Set("threshold", strconv.FormatFloat(*opts.Threshold, 'f', -1, 64))
	}
	if opts.SignificantOnly {
		q.Set("significant_only", "true")
	}
	path := jobPath(jobID, "cliffs")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out CliffReport
	if err := j.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary returns the job summary.
func (j *JobsClient) Summary(ctx context.Context, jobID string) (*Summary, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	var out Summary
	if err := j.client.get(ctx, jobPath(jobID, "summary"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export returns a presigned link to the archived snapshot in format
// ("json" or "csv").
func (j *JobsClient) Export(ctx context.Context, jobID, format string) (*Export, error) {
	if err := requireID("job id", jobID); err != nil {
		return nil, err
	}
	path := jobPath(jobID, "export")
	if format != "" {
		path += "?" + url.Values{"format": {format}}.Encode()
	}
	var out Export
	if err := j.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
