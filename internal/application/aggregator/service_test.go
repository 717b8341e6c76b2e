package aggregator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/testutil"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

func testDocument(jobID uuid.UUID) *result.Document {
	sim := 91.5
	return &result.Document{
		JobID:           jobID,
		PrimaryCompound: &result.CompoundResult{CompoundID: "p", Structure: "CCO"},
		SimilarCompounds: []result.CompoundResult{
			{CompoundID: "s1", Structure: "CCN", Similarity: &sim},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestUpsert_FillsDefaults(t *testing.T) {
	store := new(testutil.MockResultStore)
	svc := NewService(store, nil, time.Hour, nil)
	ctx := context.Background()
	jobID := uuid.New()

	store.On("Upsert", ctx, jobID, mock.MatchedBy(func(e result.CompoundResult) bool {
		return e.CompoundID == "c1" && e.Results != nil && !e.UpdatedAt.IsZero()
	}), false).Return(nil)

	require.NoError(t, svc.Upsert(ctx, jobID, result.CompoundResult{CompoundID: "c1"}, false))
	store.AssertExpectations(t)
}

func TestUpsert_RequiresIDs(t *testing.T) {
	store := new(testutil.MockResultStore)
	svc := NewService(store, nil, time.Hour, nil)

	err := svc.Upsert(context.Background(), uuid.New(), result.CompoundResult{}, true)
	assert.True(t, errors.IsValidation(err))

	err = svc.Upsert(context.Background(), uuid.Nil, result.CompoundResult{CompoundID: "c"}, true)
	assert.True(t, errors.IsValidation(err))
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchForCompound(t *testing.T) {
	store := new(testutil.MockResultStore)
	svc := NewService(store, nil, time.Hour, nil)
	ctx := context.Background()
	jobID := uuid.New()
	store.On("Fetch", ctx, jobID).Return(testDocument(jobID), nil)

	primary, err := svc.FetchForCompound(ctx, jobID, "p")
	require.NoError(t, err)
	assert.Equal(t, "CCO", primary.Structure)

	similar, err := svc.FetchForCompound(ctx, jobID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 91.5, *similar.Similarity)

	_, err = svc.FetchForCompound(ctx, jobID, "unknown")
	assert.True(t, errors.IsCode(err, errors.ErrCodeResultNotFound))
}

func TestFetch_NotFoundPropagates(t *testing.T) {
	store := new(testutil.MockResultStore)
	svc := NewService(store, nil, time.Hour, nil)
	ctx := context.Background()
	jobID := uuid.New()
	store.On("Fetch", ctx, jobID).Return(nil, errors.New(errors.ErrCodeResultNotFound, "no results"))

	_, err := svc.FetchForCompound(ctx, jobID, "p")
	assert.True(t, errors.IsNotFound(err))
}

func TestArchive_UploadsBothFormats(t *testing.T) {
	store := new(testutil.MockResultStore)
	archive := new(testutil.MockArchive)
	svc := NewService(store, archive, time.Hour, testutil.NewMockLogger())
	ctx := context.Background()
	jobID := uuid.New()
	store.On("Fetch", ctx, jobID).Return(testDocument(jobID), nil)

	jsonKey := result.ArchiveKey(jobID, result.FormatJSON)
	csvKey := result.ArchiveKey(jobID, result.FormatCSV)
	archive.On("Put", ctx, jsonKey, "application/json", mock.AnythingOfType("int64")).Return(nil)
	archive.On("Put", ctx, csvKey, "text/csv", mock.AnythingOfType("int64")).Return(nil)

	require.NoError(t, svc.Archive(ctx, jobID))
	archive.AssertExpectations(t)

	var back result.Document
	require.NoError(t, json.Unmarshal(archive.Bodies[jsonKey], &back))
	assert.Equal(t, jobID, back.JobID)
	assert.Contains(t, string(archive.Bodies[csvKey]), "compound_id")
}

func TestArchive_PutFailure(t *testing.T) {
	store := new(testutil.MockResultStore)
	archive := new(testutil.MockArchive)
	svc := NewService(store, archive, time.Hour, nil)
	ctx := context.Background()
	jobID := uuid.New()
	store.On("Fetch", ctx, jobID).Return(testDocument(jobID), nil)
	archive.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeResultArchiveFailed, "upload failed"))

	err := svc.Archive(ctx, jobID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeResultArchiveFailed))
	archive.AssertNumberOfCalls(t, "Put", 1)
}

func TestArchive_DisabledIsNoop(t *testing.T) {
	store := new(testutil.MockResultStore)
	svc := NewService(store, nil, time.Hour, nil)

	require.NoError(t, svc.Archive(context.Background(), uuid.New()))
	store.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestExportURL(t *testing.T) {
	archive := new(testutil.MockArchive)
	svc := NewService(new(testutil.MockResultStore), archive, 15*time.Minute, nil)
	ctx := context.Background()
	jobID := uuid.New()
	archive.On("PresignedURL", ctx, result.ArchiveKey(jobID, result.FormatCSV), 15*time.Minute).
		Return("https://minio.local/results/jobs/x/results.csv?sig=1", nil)

	u, err := svc.ExportURL(ctx, jobID, " CSV ")
	require.NoError(t, err)
	assert.Contains(t, u, "results.csv")

	_, err = svc.ExportURL(ctx, jobID, "xlsx")
	assert.True(t, errors.IsValidation(err))
}

func TestExportURL_DisabledArchive(t *testing.T) {
	svc := NewService(new(testutil.MockResultStore), nil, time.Hour, nil)

	_, err := svc.ExportURL(context.Background(), uuid.New(), "json")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}

//Personal.AI order the ending
