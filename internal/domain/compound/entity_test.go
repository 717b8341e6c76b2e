package compound

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestNewCompound(t *testing.T) {
	c, err := NewCompound("  CC(=O)Oc1ccccc1C(=O)O ", "aspirin", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "CC(=O)Oc1ccccc1C(=O)O", c.Structure)
	assert.Equal(t, "aspirin", c.Name)
	assert.Equal(t, "user-1", c.OwnerID)
	assert.Equal(t, StatusPending, c.Status)
	assert.False(t, c.HasProperties())
	assert.Equal(t, "", c.ExternalRef())
}

func TestNewCompound_NameDefaultsToStructure(t *testing.T) {
	c, err := NewCompound("CCO", "", "")
	require.NoError(t, err)
	assert.Equal(t, "CCO", c.Name)
}

func TestNormalizeStructure_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":        "   ",
		"bad chars":    "CC O",
		"unmatched":    "CC(C",
		"wrong closer": "C[C)",
		"stray closer": "CC)",
		"too long":     strings.Repeat("C", maxStructureLength+1),
	}
	for name, in := range cases {
		in := in
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeStructure(in)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundInvalidStructure))
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestNormalizeStructure_AcceptsBracketAtoms(t *testing.T) {
	s, err := NormalizeStructure("C[C@@H](N)C(=O)[O-].[Na+]")
	require.NoError(t, err)
	assert.Equal(t, "C[C@@H](N)C(=O)[O-].[Na+]", s)
}

func TestProperties_Validate(t *testing.T) {
	assert.NoError(t, Properties{MolecularWeight: 180.16, PolarSurfaceArea: 63.6, HeavyAtoms: 13}.Validate())
	assert.Error(t, Properties{MolecularWeight: -1}.Validate())
	assert.Error(t, Properties{HBondDonors: intPtr(-1)}.Validate())
}

func TestProperties_PolarAtoms(t *testing.T) {
	measured := Properties{PolarSurfaceArea: 63.6, HBondDonors: intPtr(1), HBondAcceptors: intPtr(3)}
	assert.Equal(t, 4, measured.PolarAtoms())

	estimated := Properties{PolarSurfaceArea: 63.6}
	assert.Equal(t, 3, estimated.PolarAtoms())

	none := Properties{}
	assert.Equal(t, 1, none.PolarAtoms())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusCompleted.IsValid())
	assert.False(t, Status("processing").IsValid())
}
