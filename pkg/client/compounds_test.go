package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCompoundID = "9b1d2c3e-4f50-4a6b-8c7d-0e1f2a3b4c5d"

func TestCompounds_Get(t *testing.T) {
	ext := "CHEMBL25"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/compounds/"+testCompoundID, r.URL.Path)
		writeJSON(w, http.StatusOK, Compound{ID: testCompoundID, Structure: "CC(=O)Oc1ccccc1C(=O)O", ExternalID: &ext,
			Properties: &Properties{MolecularWeight: 180.16, PolarSurfaceArea: 63.6, HeavyAtoms: 13}})
	})

	cmp, err := c.Compounds().Get(context.Background(), testCompoundID)
	require.NoError(t, err)
	assert.Equal(t, "CHEMBL25", *cmp.ExternalID)
	assert.Equal(t, 13, cmp.Properties.HeavyAtoms)
}

func TestCompounds_Results_Pending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/compounds/"+testCompoundID+"/results", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"job": Job{ID: testJobID, Status: JobPending}})
	})

	res, err := c.Compounds().Results(context.Background(), testCompoundID)
	require.NoError(t, err)
	assert.Equal(t, JobPending, res.Job.Status)
	assert.Nil(t, res.Results)
}

func TestCompounds_Jobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string][]Job{"jobs": {{ID: "j2"}, {ID: "j1"}}})
	})

	jobs, err := c.Compounds().Jobs(context.Background(), testCompoundID, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID)
}

func TestCompounds_Results_Similar(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"job":        Job{ID: testJobID, Status: JobCompleted},
			"is_primary": false,
			"result":     CompoundResult{CompoundID: testCompoundID, Structure: "CCCO"},
		})
	})

	res, err := c.Compounds().Results(context.Background(), testCompoundID)
	require.NoError(t, err)
	assert.False(t, res.IsPrimary)
	assert.Nil(t, res.Results)
	require.NotNil(t, res.Result)
	assert.Equal(t, "CCCO", res.Result.Structure)
}

func TestCompounds_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/compounds", r.URL.Path)
		assert.Equal(t, "alice smith", r.URL.Query().Get("owner"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string][]Compound{"compounds": {{ID: "c2", Structure: "CCN"}, {ID: "c1", Structure: "CCO"}}})
	})

	list, err := c.Compounds().List(context.Background(), "alice smith", 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
}

func TestCompounds_List_RequiresOwner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})

	_, err := c.Compounds().List(context.Background(), " ", 0)
	assert.Error(t, err)
}

func TestMetrics_Compute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/metrics/compute", r.URL.Path)
		var req MetricsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100.0, req.ValueNM)
		assert.Nil(t, req.PolarAtoms)
		writeJSON(w, http.StatusOK, Metrics{PActivity: 7, SEI: 7, BEI: 14, NSEI: 1.4, NBEI: 11.7})
	})

	m, err := c.Metrics().Compute(context.Background(), MetricsRequest{ValueNM: 100, MolecularWeight: 500, PolarSurfaceArea: 100, HeavyAtoms: 10})
	require.NoError(t, err)
	assert.Equal(t, 11.7, m.NBEI)
}

//Personal.AI order the ending
