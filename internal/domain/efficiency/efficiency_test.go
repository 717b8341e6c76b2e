package efficiency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_ReferenceVector(t *testing.T) {
	m := Compute(10, 300, 60, 20, 3)

	assert.Equal(t, 8.0, m.PActivity)
	assert.Equal(t, 13.333, m.SEI)
	assert.Equal(t, 26.667, m.BEI)
	assert.Equal(t, 4.444, m.NSEI)
	assert.Equal(t, 22.067, m.NBEI)
	assert.True(t, m.Computable())
}

func TestCompute_NonPositiveValueIsSentinel(t *testing.T) {
	for _, v := range []float64{0, -1, -1e9, math.NaN(), math.Inf(1)} {
		m := Compute(v, 300, 60, 20, 3)
		assert.Equal(t, Metrics{}, m, "value %v", v)
		assert.False(t, m.Computable())
	}
}

func TestCompute_MillimolarIsComputable(t *testing.T) {
	m := Compute(1e9, 300, 60, 20, 3)

	assert.True(t, m.Computable())
	assert.Equal(t, 0.0, m.PActivity)
	assert.False(t, math.Signbit(m.PActivity))
	assert.Equal(t, 0.0, m.SEI)
	assert.NotEqual(t, Metrics{}, m)
}

func TestMetrics_ComputableWithoutFlag(t *testing.T) {
	assert.True(t, Metrics{PActivity: 7}.Computable())
	assert.False(t, Metrics{}.Computable())
}

func TestCompute_PartialSentinels(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Metrics
	}{
		{
			name: "no psa",
			in:   Input{ValueNM: 10, MolecularWeight: 500, PolarSurfaceArea: 0, HeavyAtoms: 10, PolarAtoms: 2},
			want: Metrics{PActivity: 8, SEI: 0, BEI: 16, NSEI: 0, NBEI: 13.7, Computed: true},
		},
		{
			name: "no weight",
			in:   Input{ValueNM: 10, MolecularWeight: 0, PolarSurfaceArea: 100, HeavyAtoms: 10, PolarAtoms: 2},
			want: Metrics{PActivity: 8, SEI: 8, BEI: 0, NSEI: 4, NBEI: 0, Computed: true},
		},
		{
			name: "no polar atoms",
			in:   Input{ValueNM: 1, MolecularWeight: 450, PolarSurfaceArea: 90, HeavyAtoms: 0, PolarAtoms: 0},
			want: Metrics{PActivity: 9, SEI: 10, BEI: 20, NSEI: 0, NBEI: 20, Computed: true},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeInput(tc.in))
		})
	}
}

func TestCompute_Rounding(t *testing.T) {
	m := Compute(3, 333, 77, 23, 5)
	for _, v := range []float64{m.PActivity, m.SEI, m.BEI, m.NSEI, m.NBEI} {
		assert.InDelta(t, v, math.Round(v*1000)/1000, 1e-12)
	}
}

func TestPActivity(t *testing.T) {
	assert.Equal(t, 9.0, PActivity(1))
	assert.Equal(t, 6.0, PActivity(1000))
	assert.Equal(t, 5.301, PActivity(5000))
	assert.Equal(t, 0.0, PActivity(0))
}

func TestEstimatePolarAtoms(t *testing.T) {
	assert.Equal(t, 1, EstimatePolarAtoms(0))
	assert.Equal(t, 1, EstimatePolarAtoms(5))
	assert.Equal(t, 3, EstimatePolarAtoms(60))
	assert.Equal(t, 4, EstimatePolarAtoms(70))
}

func TestPolarAtoms(t *testing.T) {
	two, three, zero := 2, 3, 0
	assert.Equal(t, 5, PolarAtoms(&two, &three, 200))
	assert.Equal(t, 10, PolarAtoms(nil, &three, 200))
	assert.Equal(t, 1, PolarAtoms(&zero, &zero, 0))
}
