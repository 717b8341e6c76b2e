package cli

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/pkg/client"
)

const jobID = "0f8e5c7a-1b2d-4e3f-a4b5-c6d7e8f90a1b"

func replyJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSubmit_Queued(t *testing.T) {
	var got client.SubmitRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		replyJSON(w, http.StatusAccepted, client.SubmitResponse{
			Job:      &client.Job{ID: jobID, CompoundID: "c-1", Status: client.JobPending, SimilarityThreshold: 75},
			Compound: &client.Compound{ID: "c-1"},
		})
	})

	args := append(apiServer(t, mux), "submit", "--smiles", "CCO", "--name", "ethanol", "--threshold", "75")
	out, _, err := execute(t, args...)
	require.NoError(t, err)

	assert.Equal(t, "CCO", got.Structure)
	assert.Equal(t, "ethanol", got.Name)
	require.NotNil(t, got.Threshold)
	assert.Equal(t, 75.0, *got.Threshold)
	assert.Contains(t, out, "Job "+jobID+" queued for compound c-1")
	assert.Contains(t, out, "pending")
}

func TestSubmit_DefaultThresholdOmitted(t *testing.T) {
	var raw map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		replyJSON(w, http.StatusOK, client.SubmitResponse{
			Job: &client.Job{ID: jobID}, Compound: &client.Compound{ID: "c-1"}, Reused: true,
		})
	})

	args := append(apiServer(t, mux), "-o", "json", "submit", "--smiles", "CCO")
	out, _, err := execute(t, args...)
	require.NoError(t, err)

	_, hasThreshold := raw["similarity_threshold"]
	assert.False(t, hasThreshold)

	var res client.SubmitResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Reused)
}

func TestSubmit_Validation(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&calls, 1) })
	srv := apiServer(t, mux)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing smiles", []string{"submit"}, `required flag(s) "smiles" not set`},
		{"blank smiles", []string{"submit", "--smiles", "  "}, "--smiles must not be empty"},
		{"threshold above range", []string{"submit", "--smiles", "CCO", "--threshold", "120"}, "threshold must be between 0 and 100"},
		{"threshold below range", []string{"submit", "--smiles", "CCO", "--threshold", "-1"}, "threshold must be between 0 and 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(srv, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmit_WaitCompletes(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusAccepted, client.SubmitResponse{
			Job: &client.Job{ID: jobID, Status: client.JobPending}, Compound: &client.Compound{ID: "c-1"},
		})
	})
	mux.HandleFunc("/api/v1/jobs/"+jobID, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) < 2 {
			replyJSON(w, http.StatusOK, client.Job{ID: jobID, Status: client.JobProcessing, Progress: 0.5})
			return
		}
		replyJSON(w, http.StatusOK, client.Job{ID: jobID, Status: client.JobCompleted, Progress: 1})
	})

	args := append(apiServer(t, mux), "submit", "--smiles", "CCO", "--wait", "--interval", "5ms")
	out, errOut, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "processing  50%")
	assert.Contains(t, out, "completed")
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestSubmit_WaitFailedJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusAccepted, client.SubmitResponse{
			Job: &client.Job{ID: jobID, Status: client.JobPending}, Compound: &client.Compound{ID: "c-1"},
		})
	})
	mux.HandleFunc("/api/v1/jobs/"+jobID, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.Job{ID: jobID, Status: client.JobFailed, Error: "similarity search failed"})
	})

	args := append(apiServer(t, mux), "submit", "--smiles", "CCO", "--wait", "--interval", "5ms")
	_, _, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity search failed")
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/"+jobID, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.Job{ID: jobID, CompoundID: "c-1", Status: client.JobProcessing, Progress: 0.25, SimilarityThreshold: 80})
	})

	out, _, err := execute(t, append(apiServer(t, mux), "status", jobID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "25%")
}

func TestStatus_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusNotFound, map[string]string{"code": "JOB_001", "message": "analysis job not found"})
	})

	_, _, err := execute(t, append(apiServer(t, mux), "status", jobID)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOB_001")

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestStatus_RequiresJobID(t *testing.T) {
	_, _, err := execute(t, "status")
	assert.Error(t, err)
}

func TestResults(t *testing.T) {
	sim := 88.0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/"+jobID+"/results", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.ResultDocument{
			JobID: jobID,
			PrimaryCompound: &client.CompoundResult{CompoundID: "p", Results: []client.Measurement{
				{TargetID: "CHEMBL240", ActivityType: "IC50", ValueNM: 100, Metrics: client.Metrics{PActivity: 7, BEI: 14}},
			}},
			SimilarCompounds: []client.CompoundResult{{CompoundID: "s1", Similarity: &sim, Results: []client.Measurement{
				{TargetID: "CHEMBL240", ActivityType: "Ki", ValueNM: 10, Metrics: client.Metrics{PActivity: 8}},
			}}},
		})
	})
	mux.HandleFunc("/api/v1/jobs/"+jobID+"/results/s1", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.CompoundResult{CompoundID: "s1", ExternalID: "CHEMBL25", Similarity: &sim})
	})
	srv := apiServer(t, mux)

	out, _, err := execute(t, append(srv, "results", jobID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 compound(s), 2 measurement(s)")
	assert.Contains(t, out, "p*")
	assert.Contains(t, out, "CHEMBL240")

	out, _, err = execute(t, append(srv, "results", jobID, "--compound", "s1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Compound s1 (CHEMBL25)")
	assert.Contains(t, out, "Similarity: 88%")
}

func TestCliffs(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/"+jobID+"/cliffs", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		replyJSON(w, http.StatusOK, client.CliffReport{Threshold: 1.5, TotalPairs: 3, SignificantPairs: 1, Pairs: []client.CliffPair{
			{A: client.CliffCompound{ID: "a"}, B: client.CliffCompound{ID: "b"}, PotencyDifference: 2.1, WeightDifference: 14, Significant: true},
		}})
	})
	srv := apiServer(t, mux)

	out, _, err := execute(t, append(srv, "cliffs", jobID, "--threshold", "1.5", "--significant-only")...)
	require.NoError(t, err)
	assert.Contains(t, query, "threshold=1.5")
	assert.Contains(t, query, "significant_only=true")
	assert.Contains(t, out, "Threshold 1.5: 1 significant of 3 pair(s)")
	assert.Contains(t, out, "2.1")

	_, _, err = execute(t, append(srv, "cliffs", jobID, "--threshold", "0")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold must be positive")
}

func TestSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/"+jobID+"/summary", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.Summary{JobID: jobID, SimilarityThreshold: 80, CompoundsProcessed: 4, TotalMeasurements: 9,
			ByActivityType: []client.TypeStats{{ActivityType: "IC50", Measurements: 9, MeanPActivity: 6.5}}})
	})

	out, _, err := execute(t, append(apiServer(t, mux), "summary", jobID)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Compounds processed:     4")
	assert.Contains(t, out, "IC50")
	assert.Contains(t, out, "6.5")
}

func TestExport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/"+jobID+"/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		replyJSON(w, http.StatusOK, client.Export{JobID: jobID, Format: "csv", URL: "http://minio:9000/results.csv?sig=x"})
	})
	srv := apiServer(t, mux)

	out, _, err := execute(t, append(srv, "export", jobID, "--format", "CSV")...)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/results.csv?sig=x", strings.TrimSpace(out))

	_, _, err = execute(t, append(srv, "export", jobID, "--format", "xml")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be json or csv")
}

func TestCompoundCommands(t *testing.T) {
	ext := "CHEMBL25"
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/compounds/c-1", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.Compound{ID: "c-1", Name: "aspirin", Structure: "CC(=O)Oc1ccccc1C(=O)O", ExternalID: &ext,
			Properties: &client.Properties{MolecularWeight: 180.16, HeavyAtoms: 13}})
	})
	mux.HandleFunc("/api/v1/compounds/c-1/results", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.CompoundResults{Job: &client.Job{ID: jobID, Status: client.JobProcessing}})
	})
	mux.HandleFunc("/api/v1/compounds/c-1/jobs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		replyJSON(w, http.StatusOK, map[string][]client.Job{"jobs": {{ID: "j2"}, {ID: "j1"}}})
	})
	srv := apiServer(t, mux)

	out, _, err := execute(t, append(srv, "compound", "get", "c-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "aspirin")
	assert.Contains(t, out, "External:   CHEMBL25")
	assert.Contains(t, out, "180.16")

	out, _, err = execute(t, append(srv, "compound", "results", "c-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No results yet.")

	out, _, err = execute(t, append(srv, "-o", "json", "compound", "jobs", "c-1", "--limit", "2")...)
	require.NoError(t, err)
	var jobs []client.Job
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID)
}

func TestCompoundResults_SimilarCompound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/compounds/s-1/results", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, client.CompoundResults{
			Job:    &client.Job{ID: jobID, Status: client.JobCompleted},
			Result: &client.CompoundResult{CompoundID: "s-1", ExternalID: "CHEMBL14688", Structure: "CCCO"},
		})
	})

	out, _, err := execute(t, append(apiServer(t, mux), "compound", "results", "s-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Compound s-1 (CHEMBL14688)")
	assert.NotContains(t, out, "No results yet.")
}

func TestCompoundList(t *testing.T) {
	ext := "CHEMBL545"
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/compounds", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("owner"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		replyJSON(w, http.StatusOK, map[string][]client.Compound{"compounds": {
			{ID: "c-2", Name: "propanol", Structure: "CCCO", Status: "pending"},
			{ID: "c-1", Name: "ethanol", Structure: "CCO", ExternalID: &ext, Status: "completed"},
		}})
	})
	srv := apiServer(t, mux)

	out, _, err := execute(t, append(srv, "compound", "list", "--owner", "alice", "--limit", "5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "propanol")
	assert.Contains(t, out, "CHEMBL545")
	assert.Less(t, strings.Index(out, "c-2"), strings.Index(out, "c-1"))

	_, _, err = execute(t, append(srv, "compound", "list")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "owner" not set`)
}

//Personal.AI order the ending
