//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

func TestCompoundRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed repository test in short mode")
	}
	ctx := context.Background()
	log := logging.NewNopLogger()
	conn := startPostgres(t)
	compounds := repositories.NewPostgresCompoundRepo(conn, log)
	jobs := repositories.NewPostgresJobRepo(conn, log)

	t.Run("long structures stay unique", func(t *testing.T) {
		structure := strings.Repeat("C", 4000)
		c, err := compound.NewCompound(structure, "long chain", "bob")
		require.NoError(t, err)
		require.NoError(t, compounds.Create(ctx, c))

		dup, err := compound.NewCompound(structure, "", "bob")
		require.NoError(t, err)
		assert.True(t, errors.IsConflict(compounds.Create(ctx, dup)))

		got, err := compounds.GetByStructure(ctx, structure)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("list by owner", func(t *testing.T) {
		var ids []uuid.UUID
		for _, s := range []string{"CN", "CCN", "CCCN"} {
			c, err := compound.NewCompound(s, "", "carol")
			require.NoError(t, err)
			require.NoError(t, compounds.Create(ctx, c))
			ids = append(ids, c.ID)
		}

		listed, err := compounds.ListByOwner(ctx, "carol", 2)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, ids[2], listed[0].ID)
		assert.Equal(t, ids[1], listed[1].ID)

		none, err := compounds.ListByOwner(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("latest relation covers both roles", func(t *testing.T) {
		primary, err := compound.NewCompound("CS", "", "dave")
		require.NoError(t, err)
		require.NoError(t, compounds.Create(ctx, primary))
		similar, err := compound.NewCompound("CCS", "", "dave")
		require.NoError(t, err)
		require.NoError(t, compounds.Create(ctx, similar))

		_, err = compounds.LatestRelation(ctx, similar.ID)
		assert.True(t, errors.IsNotFound(err))

		j, err := job.NewJob(primary.ID, "dave", 80)
		require.NoError(t, err)
		created, ok, err := jobs.CreatePending(ctx, j)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, compounds.Relate(ctx, similar.ID, created.ID, false))

		rel, err := compounds.LatestRelation(ctx, similar.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, rel.JobID)
		assert.False(t, rel.IsPrimary)

		rel, err = compounds.LatestRelation(ctx, primary.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, rel.JobID)
		assert.True(t, rel.IsPrimary)
	})
}

//Personal.AI order the ending
